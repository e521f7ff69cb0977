package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/tgforms/core/bootstrap"
	"github.com/m3rciful/tgforms/core/buildinfo"
	"github.com/m3rciful/tgforms/core/telegram/format"
	"github.com/m3rciful/tgforms/core/telegram/forms"
	"github.com/m3rciful/tgforms/core/telegram/forms/definition"
	"github.com/m3rciful/tgforms/core/telegram/helpers"
)

// definitionActions binds the names definitions files may refer to.
func definitionActions(parseMode string) definition.Actions {
	return definition.Actions{
		Completions: map[string]forms.CompletionFunc{
			"summary": summaryCompletion(parseMode),
		},
		Items: map[string]forms.ActionFunc{
			"about": aboutAction,
		},
		Validators: map[string]forms.Validator{
			"no_digits": forms.ValidatorFunc("no_digits", noDigits),
		},
	}
}

// summaryCompletion echoes the collected values back to the user.
func summaryCompletion(parseMode string) forms.CompletionFunc {
	return func(c tele.Context, data forms.Data) error {
		return helpers.SendText(c, renderData("Thanks! You entered:", data, parseMode),
			&tele.SendOptions{ParseMode: bootstrap.ParseMode(parseMode), ReplyMarkup: &tele.ReplyMarkup{RemoveKeyboard: true}})
	}
}

func renderData(header string, data map[string]any, parseMode string) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(format.Escape(header, parseMode))
	for _, k := range keys {
		v := "-"
		if data[k] != nil {
			v = fmt.Sprint(data[k])
		}
		b.WriteString("\n")
		b.WriteString(format.Escape(k+": "+v, parseMode))
	}
	return b.String()
}

func aboutAction(c tele.Context) error {
	return helpers.SendText(c, "formsbot "+buildinfo.String())
}

var errHasDigits = errors.New("contains digits")

func noDigits(_ context.Context, v any) error {
	s, _ := v.(string)
	if strings.IndexFunc(s, unicode.IsDigit) >= 0 {
		return errHasDigits
	}
	return nil
}
