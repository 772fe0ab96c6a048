package restfire

import (
	"bytes"
	"encoding/json"
)

const rulesPath = ".settings/rules"

// Keys of the rules document.
const (
	ReadKey     = ".read"
	WriteKey    = ".write"
	ValidateKey = ".validate"
	IndexKey    = ".indexOn"
)

// Rules is the security rules document of a database: {"rules": {...}}.
// The rule language is not interpreted.
type Rules struct {
	rules map[string]any
}

// NewRules copies rules into a new document.
func NewRules(rules map[string]any) *Rules {
	return &Rules{
		rules: deepCopyMap(rules),
	}
}

// Rules returns a deep copy of the rules, modifying it does not change r.
func (r *Rules) Rules() map[string]any {
	return deepCopyMap(r.rules)
}

type rulesDocument struct {
	Rules map[string]any `json:"rules"`
}

// MarshalJSON is the JSON form of the document. Requests do not use it,
// RulesReference encodes the document with the Codec of its Database.
func (r *Rules) MarshalJSON() ([]byte, error) {
	return NewJSONCodec().Marshal(rulesDocument{Rules: r.rules})
}

// UnmarshalJSON ...
func (r *Rules) UnmarshalJSON(data []byte) error {
	var doc rulesDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	r.rules = doc.Rules
	return nil
}

// RulesReference reads and replaces the security rules document.
// It requires an administrative credential.
type RulesReference struct {
	db  *Database
	loc Location
}

func newRulesReference(db *Database) *RulesReference {
	return &RulesReference{
		db:  db,
		loc: db.location(rulesPath),
	}
}

// ReferenceURL ...
func (r *RulesReference) ReferenceURL() string {
	return r.loc.ReferenceURL()
}

// Get reads the rules document, a null document resolves with nil.
func (r *RulesReference) Get() *Future[*Rules] {
	r.db.logger.Debugf("Get() invoked for security rules")

	refURL := r.ReferenceURL()
	req := buildGet(r.loc.requestURL(), r.loc.credential)
	return startRequest(r.db, refURL, req, func(resp *Response) (*Rules, error) {
		doc, err := classify[*rulesDocument](r.db.classifier, refURL, resp)
		if err != nil || doc == nil {
			return nil, err
		}
		return &Rules{rules: doc.Rules}, nil
	})
}

// Set replaces the rules document, the future resolves with rules itself.
func (r *RulesReference) Set(rules *Rules) *Future[*Rules] {
	r.db.logger.Debugf("Set() invoked for security rules")

	refURL := r.ReferenceURL()
	if rules == nil {
		return rejectedFuture[*Rules](r.db.dispatcher, ErrInvalidArgument)
	}

	body, err := r.db.codec.Marshal(rulesDocument{Rules: rules.rules})
	if err != nil {
		return rejectedFuture[*Rules](r.db.dispatcher, newError(ErrInvalidArgument, refURL, 0, "", err))
	}

	req := buildPut(r.loc.requestURL(), r.loc.credential, indentBody(body))
	return startRequest(r.db, refURL, req, func(resp *Response) (*Rules, error) {
		if err := r.db.classifier.classifyNone(refURL, resp); err != nil {
			return nil, err
		}
		return rules, nil
	})
}

// indentBody pretty prints the document, as the rules are meant to be read by humans.
func indentBody(body []byte) []byte {
	var buf bytes.Buffer
	if err := json.Indent(&buf, body, "", "  "); err != nil {
		return body
	}
	return buf.Bytes()
}

func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = deepCopyValue(v)
	}
	return result
}

func deepCopyValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		return deepCopyMap(value)
	case []any:
		result := make([]any, len(value))
		for i, e := range value {
			result[i] = deepCopyValue(e)
		}
		return result
	default:
		return value
	}
}
