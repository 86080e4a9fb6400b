// Package translate localizes the user-visible messages of the LS-8 tools.
//
// The message language is taken from the host locale, falling back to en-US.
package translate

import (
	"log"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	tag     language.Tag
	printer *message.Printer
)

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("ls8: locale: %v", err)
	}

	if len(locales) == 0 {
		locales = []string{"en-US"}
	}

	tag = message.MatchLanguage(locales...)
	printer = message.NewPrinter(tag)
}

// Language returns the language selected for messages.
func Language() language.Tag {
	return tag
}

// From formats an en-US Sprintf() style key in the selected language.
func From(key message.Reference, args ...any) string {
	return printer.Sprintf(key, args...)
}
