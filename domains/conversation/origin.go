package conversation

import "strings"

// MessageOrigin tags a text with who produced it. It is derived once, when
// the text enters the bridge.
type MessageOrigin int

const (
	OriginUnknown MessageOrigin = iota
	OriginUser
	OriginBot
)

func (o MessageOrigin) String() string {
	switch o {
	case OriginUser:
		return "user"
	case OriginBot:
		return "bot"
	default:
		return "unknown"
	}
}

const (
	BotMarker  = "[Bot]: "
	UserMarker = "[Usuario]: "
)

// Tags sent by the gateway when the text is an automated reply.
var botReplyTags = map[string]struct{}{
	"respuesta_bot": {},
	"bot-reply":     {},
}

// DetectOrigin returns the origin carried by a marker prefix. Text without a
// marker is OriginUnknown, which means it was not injected by this bridge.
func DetectOrigin(text string) MessageOrigin {
	t := strings.TrimLeft(text, " \t\r\n")
	switch {
	case hasMarker(t, BotMarker):
		return OriginBot
	case hasMarker(t, UserMarker):
		return OriginUser
	default:
		return OriginUnknown
	}
}

// OriginForTag maps the gateway tag to the origin used for formatting.
func OriginForTag(tag string) MessageOrigin {
	if _, ok := botReplyTags[strings.ToLower(strings.TrimSpace(tag))]; ok {
		return OriginBot
	}
	return OriginUser
}

// FormatMessage prefixes text with the marker of origin.
func FormatMessage(origin MessageOrigin, text string) string {
	if origin == OriginBot {
		return BotMarker + text
	}
	return UserMarker + text
}

// markers are matched without their trailing space so "[Bot]:hola" is
// still recognised.
func hasMarker(text, marker string) bool {
	return strings.HasPrefix(text, strings.TrimRight(marker, " "))
}
