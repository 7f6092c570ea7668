package jsonx

import (
	"errors"
	"testing"
)

type payload struct {
	Title string `json:"title"`
	Count int    `json:"count"`
}

func TestExtractObjectDirect(t *testing.T) {
	var p payload
	if err := ExtractObject(`  {"title":"hello","count":2}  `, &p); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if p.Title != "hello" || p.Count != 2 {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestExtractObjectFromProse(t *testing.T) {
	text := "Sure, here you go:\n```json\n{\"title\":\"wrapped\",\"count\":7}\n```\nLet me know if you need changes."
	var p payload
	if err := ExtractObject(text, &p); err != nil {
		t.Fatalf("extract: %v", err)
	}
	if p.Title != "wrapped" || p.Count != 7 {
		t.Fatalf("unexpected payload %+v", p)
	}
}

func TestExtractObjectGreedySpan(t *testing.T) {
	// The span runs from the first '{' to the last '}', so trailing prose
	// containing a brace breaks the parse. That is the accepted trade-off.
	text := "prefix {\"title\":\"a\",\"count\":1} and a stray } at the end"
	var p payload
	if err := ExtractObject(text, &p); err == nil {
		t.Fatalf("expected parse error for greedy span, got %+v", p)
	}
}

func TestExtractObjectNoBraces(t *testing.T) {
	var p payload
	err := ExtractObject("there is no JSON here", &p)
	if !errors.Is(err, ErrNoObject) {
		t.Fatalf("expected ErrNoObject, got %v", err)
	}
}

func TestExtractObjectMalformedDirect(t *testing.T) {
	var p payload
	err := ExtractObject(`{"title": unquoted}`, &p)
	if err == nil || errors.Is(err, ErrNoObject) {
		t.Fatalf("expected parse error, got %v", err)
	}
}
