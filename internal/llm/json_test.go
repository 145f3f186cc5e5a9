package llm

import (
	"errors"
	"testing"

	"github.com/resemantic/resemantic/internal/domain"
)

func TestStripFences(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain json", `{"a": 1}`, `{"a": 1}`},
		{"surrounding whitespace", "  \n {\"a\": 1} \n ", `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"fence with whitespace", "  ```json\n{\"a\": 1}\n```  ", `{"a": 1}`},
		{"array fence", "```json\n[1, 2]\n```", `[1, 2]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StripFences(tt.input); got != tt.want {
				t.Errorf("StripFences(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestDecodeObject_FencedEqualsUnfenced(t *testing.T) {
	type payload struct {
		Type    string `json:"type"`
		Content string `json:"content"`
	}

	plain, err := DecodeObject[payload](`{"type": "decision", "content": "x"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	fenced, err := DecodeObject[payload]("```json\n{\"type\": \"decision\", \"content\": \"x\"}\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *plain != *fenced {
		t.Errorf("fenced decode %+v differs from plain decode %+v", *fenced, *plain)
	}
}

func TestDecodeObject_FailureIsOutputError(t *testing.T) {
	type payload struct{}
	_, err := DecodeObject[payload]("I could not produce JSON, sorry")
	if !errors.Is(err, domain.ErrLLMOutput) {
		t.Fatalf("expected ErrLLMOutput, got %v", err)
	}
}

func TestDecodeArray(t *testing.T) {
	type prop struct {
		Content string `json:"content"`
	}

	props, err := DecodeArray[prop]("```json\n[{\"content\": \"a\"}, {\"content\": \"b\"}]\n```")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(props) != 2 || props[0].Content != "a" || props[1].Content != "b" {
		t.Errorf("unexpected decode result: %+v", props)
	}
}

func TestDecodeArray_TruncatesRawInError(t *testing.T) {
	long := make([]byte, 500)
	for i := range long {
		long[i] = 'x'
	}
	_, err := DecodeArray[string](string(long))
	if err == nil {
		t.Fatal("expected error")
	}
	if len(err.Error()) > 400 {
		t.Errorf("error message should carry truncated raw output, got %d bytes", len(err.Error()))
	}
}
