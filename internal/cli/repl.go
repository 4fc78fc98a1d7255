package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jm289765/concept-graph-web/internal/classify"
	"github.com/jm289765/concept-graph-web/internal/domain/node"
	"github.com/jm289765/concept-graph-web/internal/editor"
)

const replHelp = `Commands (N is an editor number):
  select N ID          select a node in editor N ("-" selects nothing)
  show N               show editor N with its parents and children
  set N ATTR VALUE     edit title, content, tags or type
  save N               save pending edits now
  create N             create a node from editor N's fields
  newchild N           create a child of the selection
  newparent N          create a parent of the selection
  link N PARENT CHILD  add an edge touching the selection
  unlink N PARENT CHILD
  linkparent N         link the selection as parent of the target's
  linkchild N          link the selection as child of the target's
  unlinkparent N
  unlinkchild N
  search QUERY         search titles
  open N INDEX         open a search result in editor N
  history              list visited nodes
  help
  quit`

var errQuit = errors.New("quit")

func (a *app) replCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive editing session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			ws := a.session.Workspace
			ws.Start(ctx)
			ws.Wait()

			fmt.Fprintf(out, "%d editors; type help for commands\n", len(ws.Editors()))
			for {
				fmt.Fprint(out, "> ")
				line, err := a.in.ReadString('\n')
				if strings.TrimSpace(line) != "" {
					switch cerr := a.exec(ctx, out, line); {
					case errors.Is(cerr, errQuit):
						return nil
					case cerr != nil:
						fmt.Fprintf(out, "error: %v\n", cerr)
					}
					ws.Wait()
				}
				if err == io.EOF {
					fmt.Fprintln(out)
					return nil
				}
				if err != nil {
					return err
				}
			}
		},
	}
}

func (a *app) exec(ctx context.Context, out io.Writer, line string) error {
	ws := a.session.Workspace
	fields := strings.Fields(line)
	verb, args := fields[0], fields[1:]

	switch verb {
	case "help":
		fmt.Fprintln(out, replHelp)
		return nil
	case "quit", "exit":
		return errQuit
	case "history":
		for _, e := range ws.History.Entries() {
			fmt.Fprintln(out, e.DisplayName)
		}
		return nil
	case "search":
		query := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), verb))
		results, err := ws.Search.Run(ctx, query)
		if err != nil {
			return err
		}
		for i, r := range results {
			fmt.Fprintf(out, "%d. %s\n", i+1, r.DisplayName())
		}
		return nil
	}

	if len(args) == 0 {
		return fmt.Errorf("%s needs an editor number", verb)
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || ws.Editor(n) == nil {
		return fmt.Errorf("no editor %q", args[0])
	}
	ed, rest := ws.Editor(n), args[1:]

	switch verb {
	case "select":
		if len(rest) != 1 {
			return fmt.Errorf("usage: select N ID")
		}
		id := node.NoID
		if rest[0] != "-" {
			if id, err = parseID(rest[0]); err != nil {
				return err
			}
		}
		sel := ed.SetSelectedNode(ctx, id)
		if id != node.NoID && sel != id {
			return fmt.Errorf("node #%s could not be loaded", id)
		}
	case "show":
		ws.Wait()
		a.show(out, n)
	case "set":
		if len(rest) < 1 {
			return fmt.Errorf("usage: set N ATTR VALUE")
		}
		field, err := node.ParseField(rest[0])
		if err != nil {
			return err
		}
		value := valueAfter(line, 3)
		if !ed.Stage(field, value) {
			return fmt.Errorf("editor %d does not accept that edit", n)
		}
	case "save":
		_, err = ed.Save(ctx)
	case "create":
		_, err = ed.CreateFromStaged(ctx)
	case "newchild":
		_, err = ed.NewChild(ctx)
	case "newparent":
		_, err = ed.NewParent(ctx)
	case "link", "unlink":
		if len(rest) != 2 {
			return fmt.Errorf("usage: %s N PARENT CHILD", verb)
		}
		parent, child, perr := parsePair(rest)
		if perr != nil {
			return perr
		}
		if verb == "link" {
			return ed.Link(ctx, parent, child)
		}
		removed, uerr := ws.Viewer(n).Unlink(ctx, classify.Entry{Parent: parent, Child: child})
		if uerr == nil && !removed {
			fmt.Fprintln(out, "kept")
		}
		return uerr
	case "linkparent":
		err = ed.LinkAsParent(ctx)
	case "linkchild":
		err = ed.LinkAsChild(ctx)
	case "unlinkparent":
		err = ed.UnlinkAsParent(ctx)
	case "unlinkchild":
		err = ed.UnlinkAsChild(ctx)
	case "open":
		if len(rest) != 1 {
			return fmt.Errorf("usage: open N INDEX")
		}
		results := ws.Search.Results()
		i, aerr := strconv.Atoi(rest[0])
		if aerr != nil || i < 1 || i > len(results) {
			return fmt.Errorf("no search result %q", rest[0])
		}
		ws.Open(ctx, results[i-1], n)
	default:
		return fmt.Errorf("unknown command %q", verb)
	}
	return err
}

func (a *app) show(out io.Writer, n int) {
	ws := a.session.Workspace
	ed, v := ws.Editor(n), ws.Viewer(n)

	fmt.Fprintln(out, v.Title())
	if ed.Selected().IsZero() {
		return
	}
	if !ed.Headless() {
		for _, f := range node.Fields {
			fmt.Fprintf(out, "  %s: %s\n", f, ed.Staged(f))
		}
		if ed.Dirty() {
			fmt.Fprintln(out, "  (unsaved changes)")
		}
	}
	writePartition(out, classify.Partition{Parents: v.Parents(), Children: v.Children()})
	if t := ed.Target(); t != nil {
		fmt.Fprintf(out, "target: editor %d (%s)\n", t.ID(), selectionName(t))
	}
}

func selectionName(ed *editor.Editor) string {
	if ed.Selected().IsZero() {
		return "nothing selected"
	}
	return ed.Loaded().DisplayName()
}

// valueAfter returns line with its first n words removed, keeping the
// spacing of the rest.
func valueAfter(line string, n int) string {
	s := strings.TrimSpace(line)
	for i := 0; i < n; i++ {
		s = strings.TrimLeft(s, " \t")
		if j := strings.IndexAny(s, " \t"); j >= 0 {
			s = s[j:]
		} else {
			return ""
		}
	}
	return strings.TrimLeft(s, " \t")
}
