package normalize

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	gmailv1 "google.golang.org/api/gmail/v1"

	"mailsorter/internal/model"
	"mailsorter/pkg/util"
)

func b64url(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func message(headers map[string]string, payload *gmailv1.MessagePart) *gmailv1.Message {
	if payload == nil {
		payload = &gmailv1.MessagePart{}
	}
	for name, value := range headers {
		payload.Headers = append(payload.Headers, &gmailv1.MessagePartHeader{Name: name, Value: value})
	}
	return &gmailv1.Message{
		Id:           "m1",
		Snippet:      "preview",
		InternalDate: 1700000000000,
		Payload:      payload,
	}
}

func TestNormalize_DirectPayload(t *testing.T) {
	msg := message(
		map[string]string{"From": "a@b.com", "Subject": "Hi"},
		&gmailv1.MessagePart{Body: &gmailv1.MessagePartBody{Data: b64url("<b>Sale now</b>  big   discounts")}},
	)

	got, err := Normalize(msg)
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Body != "Sale now big discounts" {
		t.Fatalf("body got %q", got.Body)
	}
	if got.From != "a@b.com" || got.Subject != "Hi" {
		t.Fatalf("headers got from=%q subject=%q", got.From, got.Subject)
	}
	if got.ID != "m1" || got.Snippet != "preview" {
		t.Fatalf("id/snippet got %q/%q", got.ID, got.Snippet)
	}
	if got.Date != "2023-11-14T22:13:20.000Z" {
		t.Fatalf("date got %q", got.Date)
	}
	if got.IsClassified || got.Category != "" {
		t.Fatalf("normalized email must be unclassified: %+v", got)
	}
}

func TestNormalize_DefaultHeaders(t *testing.T) {
	got, err := Normalize(message(nil, nil))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Subject != "No Subject" || got.From != "Unknown" {
		t.Fatalf("defaults got subject=%q from=%q", got.Subject, got.From)
	}
	if got.Body != "" {
		t.Fatalf("missing payload data should give empty body, got %q", got.Body)
	}
}

func TestNormalize_HeaderMatchIsCaseSensitive(t *testing.T) {
	got, err := Normalize(message(map[string]string{"subject": "lower", "FROM": "upper@x.com"}, nil))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Subject != "No Subject" || got.From != "Unknown" {
		t.Fatalf("case-mismatched headers must not match: subject=%q from=%q", got.Subject, got.From)
	}
}

func TestNormalize_FirstTextPartWins(t *testing.T) {
	payload := &gmailv1.MessagePart{
		MimeType: "multipart/mixed",
		Parts: []*gmailv1.MessagePart{
			{MimeType: "image/png", Body: &gmailv1.MessagePartBody{Data: b64url("PNGDATA")}},
			{MimeType: "text/html", Body: &gmailv1.MessagePartBody{Data: b64url("<p>html first</p>")}},
			{MimeType: "text/plain", Body: &gmailv1.MessagePartBody{Data: b64url("plain second")}},
		},
	}
	got, err := Normalize(message(nil, payload))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Body != "html first" {
		t.Fatalf("want first text part, got %q", got.Body)
	}
}

func TestNormalize_NoTextPart(t *testing.T) {
	payload := &gmailv1.MessagePart{
		Parts: []*gmailv1.MessagePart{
			{MimeType: "application/pdf", Body: &gmailv1.MessagePartBody{Data: b64url("%PDF")}},
			{MimeType: "multipart/alternative"},
		},
	}
	got, err := Normalize(message(nil, payload))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Body != "" {
		t.Fatalf("want empty body, got %q", got.Body)
	}
}

func TestNormalize_DecodeFailureGivesEmptyBody(t *testing.T) {
	payload := &gmailv1.MessagePart{Body: &gmailv1.MessagePartBody{Data: "!!!not base64!!!"}}
	got, err := Normalize(message(nil, payload))
	if err != nil {
		t.Fatalf("decode failure must not be an error: %v", err)
	}
	if got.Body != "" {
		t.Fatalf("want empty body, got %q", got.Body)
	}
}

func TestNormalize_StdBase64Accepted(t *testing.T) {
	payload := &gmailv1.MessagePart{Body: &gmailv1.MessagePartBody{Data: base64.StdEncoding.EncodeToString([]byte("hello?>world"))}}
	got, err := Normalize(message(nil, payload))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if got.Body != "hello?>world" {
		t.Fatalf("got %q", got.Body)
	}
}

func TestNormalize_Truncates(t *testing.T) {
	long := strings.Repeat("ab ", 400)
	payload := &gmailv1.MessagePart{Body: &gmailv1.MessagePartBody{Data: b64url(long)}}
	got, err := Normalize(message(nil, payload))
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if utf8.RuneCountInString(got.Body) != model.MaxBodyLength {
		t.Fatalf("want %d chars got %d", model.MaxBodyLength, utf8.RuneCountInString(got.Body))
	}
	if !strings.HasPrefix(long, got.Body) {
		t.Fatalf("truncated body must be a prefix of the cleaned text")
	}
}

func TestCleanBody_TruncatesOnRuneBoundary(t *testing.T) {
	got := CleanBody(strings.Repeat("é", 600))
	if !utf8.ValidString(got) {
		t.Fatalf("truncation produced invalid UTF-8")
	}
	if utf8.RuneCountInString(got) != 500 {
		t.Fatalf("want 500 runes got %d", utf8.RuneCountInString(got))
	}
}

func TestNormalize_MalformedRecords(t *testing.T) {
	cases := map[string]*gmailv1.Message{
		"nil":        nil,
		"no id":      {Payload: &gmailv1.MessagePart{}},
		"no payload": {Id: "x"},
	}
	for name, msg := range cases {
		_, err := Normalize(msg)
		if !errors.Is(err, ErrMalformedMessage) {
			t.Fatalf("%s: want ErrMalformedMessage, got %v", name, err)
		}
		if !errors.Is(err, util.ErrInvalidInput) {
			t.Fatalf("%s: error should classify as invalid input", name)
		}
	}
}
