// Package translate formats user facing messages for the current locale.
//
// Messages are keyed by their en-US Sprintf() format. The system locales are
// probed once at startup; SetLanguage overrides them.
package translate

import (
	"log"
	"sync"

	"github.com/jeandeaual/go-locale"

	"golang.org/x/text/message"
)

const DEFAULT_LANGUAGE = "en-US"

var (
	lock    sync.RWMutex
	printer *message.Printer
)

func init() {
	locales, err := locale.GetLocales()
	if err != nil {
		log.Printf("chip8: locale: %v", err)
	}

	SetLanguage(locales...)
}

// SetLanguage selects the message printer for the best match of the BCP 47
// language tags. With no tags, DEFAULT_LANGUAGE is used.
func SetLanguage(tags ...string) {
	if len(tags) == 0 {
		tags = []string{DEFAULT_LANGUAGE}
	}

	lock.Lock()
	defer lock.Unlock()
	printer = message.NewPrinter(message.MatchLanguage(tags...))
}

// From an en-US Sprintf() format, translate to string.
func From(key message.Reference, args ...any) string {
	lock.RLock()
	defer lock.RUnlock()
	return printer.Sprintf(key, args...)
}
