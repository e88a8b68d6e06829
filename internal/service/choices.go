package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"notes-quiz/internal/domain"
)

var (
	optionLabel   = regexp.MustCompile(`^\s*\(?([A-Za-z])\s*[:).\]]\s*`)
	answerLetter  = regexp.MustCompile(`^\(?([A-Za-z])\)?\s*(?:[:.\]]|$)`)
	answerSplit   = regexp.MustCompile(`[,;]`)
	selectionSep  = regexp.MustCompile(`[,;\s]+`)
	trueFalseOpts = []string{"A: True", "B: False"}
)

var errNoItem = errors.New("response has no question item")

// generatedItem is one question as returned by the oracle.
type generatedItem struct {
	Type        string          `json:"type"`
	Question    string          `json:"question"`
	Prompt      string          `json:"prompt"`
	Choices     []string        `json:"choices"`
	Options     []string        `json:"options"`
	Answer      json.RawMessage `json:"answer"`
	Explanation string          `json:"explanation"`
	Tags        []string        `json:"tags"`
	Concepts    []string        `json:"concepts"`
}

func (it *generatedItem) prompt() string {
	if p := strings.TrimSpace(it.Question); p != "" {
		return p
	}
	return strings.TrimSpace(it.Prompt)
}

func (it *generatedItem) choices() []string {
	if len(it.Choices) > 0 {
		return it.Choices
	}
	return it.Options
}

func (it *generatedItem) concepts() []string {
	var out []string
	src := it.Tags
	if len(src) == 0 {
		src = it.Concepts
	}
	for _, c := range src {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

// itemType maps the reported type. Items without a type but with choices are
// treated as single choice.
func (it *generatedItem) itemType() domain.QuestionType {
	if strings.TrimSpace(it.Type) == "" && len(it.choices()) > 0 {
		return domain.TypeSingleChoice
	}
	return domain.MapOracleType(it.Type)
}

// parseGeneratedItem reads the first question out of an oracle response. The
// item may sit under "items" as an array or a lone object, or be the response
// itself.
func parseGeneratedItem(raw json.RawMessage) (*generatedItem, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	body := []byte(raw)
	if items, ok := top["items"]; ok {
		trimmed := bytes.TrimSpace(items)
		switch {
		case len(trimmed) > 0 && trimmed[0] == '[':
			var list []json.RawMessage
			if err := json.Unmarshal(trimmed, &list); err != nil {
				return nil, fmt.Errorf("decode items: %w", err)
			}
			if len(list) == 0 {
				return nil, errNoItem
			}
			body = list[0]
		case len(trimmed) > 0 && trimmed[0] == '{':
			body = trimmed
		default:
			return nil, errNoItem
		}
	} else {
		_, hasQuestion := top["question"]
		_, hasPrompt := top["prompt"]
		_, hasType := top["type"]
		if !hasQuestion && !hasPrompt && !hasType {
			return nil, errNoItem
		}
	}

	var item generatedItem
	if err := json.Unmarshal(body, &item); err != nil {
		return nil, fmt.Errorf("decode item: %w", err)
	}
	return &item, nil
}

// answerValues flattens a string, boolean, number or list answer. isBool is
// set when the answer was a JSON boolean.
func answerValues(raw json.RawMessage) (values []string, isBool bool) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, false
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	switch t := v.(type) {
	case []interface{}:
		for _, e := range t {
			if s := scalarString(e); s != "" {
				values = append(values, s)
			}
		}
		return values, false
	case bool:
		return []string{scalarString(t)}, true
	default:
		if s := scalarString(t); s != "" {
			return []string{s}, false
		}
		return nil, false
	}
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case bool:
		if t {
			return "True"
		}
		return "False"
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}

// optionLetter is the label of option i: an explicit "X:", "X)", "X." or
// "(X)" prefix, or the letter at index i.
func optionLetter(i int, opt string) string {
	if m := optionLabel.FindStringSubmatch(opt); m != nil {
		return strings.ToUpper(m[1])
	}
	return string(rune('A' + i))
}

func optionText(opt string) string {
	return strings.TrimSpace(optionLabel.ReplaceAllString(opt, ""))
}

// resolveCorrect maps the oracle's answer onto option letters. Each answer may
// be the option text, a full option, a letter label, or for multi choice a
// comma, semicolon or space separated letter list. Order is preserved and
// duplicates dropped.
func resolveCorrect(options, answers []string) []string {
	letters := make([]string, len(options))
	valid := make(map[string]bool, len(options))
	for i, opt := range options {
		letters[i] = optionLetter(i, opt)
		valid[letters[i]] = true
	}

	var out []string
	seen := make(map[string]bool)
	add := func(l string) {
		if !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}

	match := func(tok string) bool {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			return false
		}
		for i, opt := range options {
			if strings.EqualFold(optionText(opt), tok) || strings.EqualFold(strings.TrimSpace(opt), tok) {
				add(letters[i])
				return true
			}
		}
		if m := answerLetter.FindStringSubmatch(tok); m != nil {
			if l := strings.ToUpper(m[1]); valid[l] {
				add(l)
				return true
			}
		}
		return false
	}

	for _, ans := range answers {
		if match(ans) {
			continue
		}
		for _, part := range answerSplit.Split(ans, -1) {
			if match(part) {
				continue
			}
			fields := strings.Fields(part)
			if len(fields) > 1 && allSingleLetters(fields) {
				for _, f := range fields {
					match(f)
				}
			}
		}
	}
	return out
}

func allSingleLetters(fields []string) bool {
	for _, f := range fields {
		if len([]rune(f)) != 1 || !unicode.IsLetter([]rune(f)[0]) {
			return false
		}
	}
	return true
}

// firstAlpha returns the first letter of s in upper case, or "".
func firstAlpha(s string) string {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return string(unicode.ToUpper(r))
		}
	}
	return ""
}

// selectedLetters parses a multi-choice submission such as "A, C" or "b d".
func selectedLetters(answer string) map[string]bool {
	out := make(map[string]bool)
	for _, tok := range selectionSep.Split(answer, -1) {
		if l := firstAlpha(tok); l != "" {
			out[l] = true
		}
	}
	return out
}
