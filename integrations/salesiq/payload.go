package salesiq

type PayloadKind int

const (
	PayloadNone PayloadKind = iota
	PayloadSingle
	PayloadMany
)

// Payload is the "data" member of a SalesIQ response, which is either one
// object or a list of objects depending on the endpoint and the day.
type Payload struct {
	Kind   PayloadKind
	Single map[string]any
	Many   []map[string]any
}

// NormalizePayload is the one place where the object-or-list ambiguity of
// "data" is resolved.
func NormalizePayload(body map[string]any) Payload {
	if body == nil {
		return Payload{}
	}
	switch data := body["data"].(type) {
	case map[string]any:
		return Payload{Kind: PayloadSingle, Single: data}
	case []any:
		many := make([]map[string]any, 0, len(data))
		for _, item := range data {
			if m, ok := item.(map[string]any); ok {
				many = append(many, m)
			}
		}
		return Payload{Kind: PayloadMany, Many: many}
	default:
		return Payload{}
	}
}

// First returns the single record or the first element of the list.
func (p Payload) First() map[string]any {
	switch p.Kind {
	case PayloadSingle:
		return p.Single
	case PayloadMany:
		if len(p.Many) > 0 {
			return p.Many[0]
		}
	}
	return nil
}

// ID returns the first non-empty id-like field of First().
func (p Payload) ID(keys ...string) string {
	rec := p.First()
	if rec == nil {
		return ""
	}
	if len(keys) == 0 {
		keys = []string{"id"}
	}
	return firstID(rec, keys...)
}

// VisitorID extracts the authoritative visitor id from a visitor upsert body.
func VisitorID(body map[string]any) string {
	return NormalizePayload(body).ID("id", "visitor_id", "user_id")
}
