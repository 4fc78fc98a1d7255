package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/jm289765/concept-graph-web/internal/classify"
	"github.com/jm289765/concept-graph-web/internal/domain/node"
	apperrors "github.com/jm289765/concept-graph-web/internal/errors"
	"github.com/jm289765/concept-graph-web/internal/viewer"
)

func (a *app) getCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "get ID",
		Short: "Show a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			rec, ok := a.session.Workspace.Cache.Get(cmd.Context(), id)
			if !ok {
				return apperrors.NotFound(apperrors.CodeNodeNotFound, "node does not exist").
					WithResource(id.String()).
					Build()
			}
			return a.print(cmd.OutOrStdout(), rec, func(w io.Writer) {
				writeRecord(w, rec)
			})
		},
	}
}

func (a *app) neighborsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "neighbors ID",
		Short: "Show the parents and children of a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			hood, err := a.session.Provider.GetNeighbors(cmd.Context(), id)
			if err != nil {
				return err
			}
			a.session.Workspace.Cache.Ingest(node.NewPayload(hood.Nodes...))
			part := classify.Classify(id, hood)

			out := struct {
				Parents  []node.Record `json:"parents"`
				Children []node.Record `json:"children"`
			}{part.ParentRecords(), part.ChildRecords()}
			return a.print(cmd.OutOrStdout(), out, func(w io.Writer) {
				writePartition(w, part)
			})
		},
	}
}

func (a *app) searchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Find nodes by title",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.session.Workspace.Search.Run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), results, func(w io.Writer) {
				for _, r := range results {
					fmt.Fprintln(w, r.DisplayName())
				}
			})
		},
	}
}

func (a *app) idsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ids",
		Short: "List every node id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ids, err := a.session.Provider.ListNodeIDs(cmd.Context())
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), ids, func(w io.Writer) {
				for _, id := range ids {
					fmt.Fprintln(w, id)
				}
			})
		},
	}
}

func (a *app) addCommand() *cobra.Command {
	var (
		typ, title, content, tags, parent string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			t := node.Type(typ)
			if !t.IsAssignable() {
				return apperrors.Validation(apperrors.CodeInvalidAttribute, fmt.Sprintf("type must be one of %v", node.Types)).
					WithOperation("add").
					Build()
			}
			var p node.ID
			if parent != "" {
				var err error
				if p, err = parseID(parent); err != nil {
					return err
				}
			}
			id, err := a.session.Workspace.Cache.CreateNode(cmd.Context(), t, title, content, tags, p)
			if err != nil {
				return err
			}
			rec, _ := a.session.Workspace.Cache.Get(cmd.Context(), id)
			return a.print(cmd.OutOrStdout(), rec, func(w io.Writer) {
				fmt.Fprintf(w, "created %s\n", rec.DisplayName())
			})
		},
	}
	f := cmd.Flags()
	f.StringVarP(&typ, "type", "t", string(node.TypeConcept), "node type")
	f.StringVar(&title, "title", "", "title")
	f.StringVar(&content, "content", "", "content")
	f.StringVar(&tags, "tags", "", "tags")
	f.StringVarP(&parent, "parent", "p", "", "parent node id")
	return cmd
}

func (a *app) updateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "update ID ATTR VALUE",
		Short: "Change one attribute of a node",
		Long:  "ATTR is one of title, content, tags or type. The root node cannot be changed.",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			field, err := node.ParseField(args[1])
			if err != nil {
				return err
			}
			if _, err := a.session.Workspace.Cache.UpdateNode(cmd.Context(), id, field, args[2]); err != nil {
				return err
			}
			rec, _ := a.session.Workspace.Cache.Get(cmd.Context(), id)
			return a.print(cmd.OutOrStdout(), rec, func(w io.Writer) {
				writeRecord(w, rec)
			})
		},
	}
}

func (a *app) linkCommand() *cobra.Command {
	var twoWay bool
	cmd := &cobra.Command{
		Use:   "link PARENT CHILD",
		Short: "Add an edge",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, child, err := parsePair(args)
			if err != nil {
				return err
			}
			if err := a.session.Provider.LinkNode(cmd.Context(), parent, child, twoWay); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "linked #%s -> #%s\n", parent, child)
			return nil
		},
	}
	cmd.Flags().BoolVar(&twoWay, "two-way", false, "also add the reverse edge")
	return cmd
}

func (a *app) unlinkCommand() *cobra.Command {
	var twoWay bool
	cmd := &cobra.Command{
		Use:   "unlink PARENT CHILD",
		Short: "Remove an edge after confirmation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parent, child, err := parsePair(args)
			if err != nil {
				return err
			}
			entry := classify.Entry{Parent: parent, Child: child}
			if !entry.Unlinkable() {
				return apperrors.Validation(apperrors.CodeRootImmutable, "the root self-loop cannot be removed").
					WithOperation("unlink").
					Build()
			}
			ok, err := a.confirm(cmd, viewer.UnlinkPrompt(parent, child))
			if err != nil || !ok {
				return err
			}
			if err := a.session.Provider.UnlinkNode(cmd.Context(), parent, child, twoWay); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "unlinked #%s -> #%s\n", parent, child)
			return nil
		},
	}
	cmd.Flags().BoolVar(&twoWay, "two-way", false, "also remove the reverse edge")
	return cmd
}

func (a *app) confirm(cmd *cobra.Command, prompt string) (bool, error) {
	if a.opts.yes {
		return true, nil
	}
	c := &promptConfirmer{in: a.in, out: cmd.OutOrStdout()}
	return c.Confirm(cmd.Context(), prompt)
}

func parsePair(args []string) (node.ID, node.ID, error) {
	parent, err := parseID(args[0])
	if err != nil {
		return node.NoID, node.NoID, err
	}
	child, err := parseID(args[1])
	if err != nil {
		return node.NoID, node.NoID, err
	}
	return parent, child, nil
}

// print writes v as indented JSON when --json is set, else calls text.
func (a *app) print(w io.Writer, v any, text func(io.Writer)) error {
	if !a.opts.asJSON {
		text(w)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeRecord(w io.Writer, rec node.Record) {
	fmt.Fprintln(w, rec.DisplayName())
	fmt.Fprintf(w, "type: %s\n", rec.Type)
	if rec.Tags != "" {
		fmt.Fprintf(w, "tags: %s\n", rec.Tags)
	}
	if rec.Content != "" {
		fmt.Fprintf(w, "\n%s\n", rec.Content)
	}
}

func writePartition(w io.Writer, p classify.Partition) {
	fmt.Fprintln(w, "Parents:")
	for _, e := range p.Parents {
		fmt.Fprintf(w, "  %s\n", e.Record.DisplayName())
	}
	fmt.Fprintln(w, "Children:")
	for _, e := range p.Children {
		fmt.Fprintf(w, "  %s\n", e.Record.DisplayName())
	}
}
