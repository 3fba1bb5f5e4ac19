package validation

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
)

const (
	maxRoomID      = 128
	maxDisplayName = 64
	maxSyncAction  = 64
)

var tags = map[string]validator.Func{
	"roomid":      ValidateRoomID,
	"displayname": ValidateDisplayName,
	"syncaction":  ValidateSyncAction,
}

var aliases = map[string]string{
	"syncmode": "oneof=movie2watch netflix other",
	"connid":   "uuid4",
}

func init() {
	for tag, fn := range tags {
		MustRegisterGin(tag, fn)
	}
	for tag, alias := range aliases {
		MustRegisterGinAlias(tag, alias)
	}
}

// ValidateRoomID accepts any caller-chosen id: printable, not blank, at
// most 128 runes.
func ValidateRoomID(fl validator.FieldLevel) bool {
	return printable(fl.Field().String(), maxRoomID)
}

// ValidateDisplayName accepts any printable name of at most 64 runes that
// is not blank after trimming.
func ValidateDisplayName(fl validator.FieldLevel) bool {
	return printable(fl.Field().String(), maxDisplayName)
}

// ValidateSyncAction bounds a platform sync command. Actions such as play,
// back10 or jump-1:02:03 are relayed verbatim, so only the shape is checked.
func ValidateSyncAction(fl validator.FieldLevel) bool {
	return printable(fl.Field().String(), maxSyncAction)
}

func printable(s string, maxRunes int) bool {
	if strings.TrimSpace(s) == "" || !utf8.ValidString(s) {
		return false
	}
	if utf8.RuneCountInString(s) > maxRunes {
		return false
	}
	return strings.IndexFunc(s, unicode.IsControl) < 0
}
