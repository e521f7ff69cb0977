package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tgforms/core/telegram/forms"
	"github.com/m3rciful/tgforms/core/telegram/forms/definition"
)

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <definitions.yaml>",
		Short: "List the entities of a definitions file with their state tokens",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := definition.Load(args[0])
			if err != nil {
				return err
			}
			reg := forms.NewRegistry()
			if err := definition.RegisterAll(context.Background(), reg, f, stubActions(f)); err != nil {
				return err
			}
			if err := reg.Validate(); err != nil {
				return err
			}
			return printEntities(cmd.OutOrStdout(), reg)
		},
	}
}

// stubActions binds every action a file names to a no-op so a definitions file can
// be checked without the code that backs it.
func stubActions(f *definition.File) definition.Actions {
	acts := definitionActions("")
	for _, fs := range f.Forms {
		if _, ok := acts.Completions[fs.OnComplete]; fs.OnComplete != "" && !ok {
			acts.Completions[fs.OnComplete] = func(tele.Context, forms.Data) error { return nil }
		}
		for _, fld := range fs.Fields {
			for _, v := range fld.Validators {
				if _, ok := acts.Validators[v.Name]; !ok && !definition.IsBuiltin(v.Name) {
					acts.Validators[v.Name] = forms.ValidatorFunc(v.Name, func(context.Context, any) error { return nil })
				}
			}
		}
	}
	for _, ms := range f.Menus {
		for _, it := range ms.Items {
			if _, ok := acts.Items[it.Action]; it.Action != "" && !ok {
				acts.Items[it.Action] = func(tele.Context) error { return nil }
			}
		}
	}
	return acts
}

func printEntities(w io.Writer, reg *forms.Registry) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tENTITY\tKEY\tTOKEN\tDETAIL")
	for _, e := range reg.Entities() {
		switch v := e.(type) {
		case *forms.Form:
			for _, fld := range v.Fields() {
				detail := string(fld.Type())
				if fld.IsRequired() {
					detail += ", required"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.Kind(), v.ID(), fld.Key(), fld.Token(), detail)
			}
		case *forms.Menu:
			for _, it := range v.Items() {
				detail := "button"
				switch {
				case it.Target() != "":
					detail = "-> " + it.Target()
				case it.Action() != nil:
					detail = "action"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", v.Kind(), v.ID(), it.Key(), it.Token(), detail)
			}
		}
	}
	return tw.Flush()
}
