// Package normalize converts raw Gmail message records into model.Email.
package normalize

import (
	"encoding/base64"
	"fmt"
	"regexp"
	"strings"
	"time"

	gmailv1 "google.golang.org/api/gmail/v1"

	"mailsorter/internal/model"
	"mailsorter/pkg/util"
)

const (
	defaultSubject = "No Subject"
	defaultFrom    = "Unknown"

	// 与浏览器端 Date.toISOString() 相同的格式
	isoLayout = "2006-01-02T15:04:05.000Z"
)

var (
	ErrMalformedMessage = fmt.Errorf("malformed provider message: %w", util.ErrInvalidInput)

	tagPattern = regexp.MustCompile(`<[^>]*>`)
)

// Normalize builds an unclassified Email from a full-format provider message.
// Only a structurally invalid record is an error; a body that cannot be
// decoded is treated as empty.
func Normalize(msg *gmailv1.Message) (model.Email, error) {
	if err := validate(msg); err != nil {
		return model.Email{}, err
	}

	headers := msg.Payload.Headers
	return model.Email{
		ID:           msg.Id,
		Subject:      headerValue(headers, "Subject", defaultSubject),
		From:         headerValue(headers, "From", defaultFrom),
		Snippet:      msg.Snippet,
		Date:         FormatInternalDate(msg.InternalDate),
		Body:         CleanBody(extractBody(msg.Payload)),
		IsClassified: false,
	}, nil
}

func validate(msg *gmailv1.Message) error {
	if msg == nil {
		return fmt.Errorf("nil message: %w", ErrMalformedMessage)
	}
	if msg.Id == "" {
		return fmt.Errorf("message without id: %w", ErrMalformedMessage)
	}
	if msg.Payload == nil {
		return fmt.Errorf("message %s has no payload: %w", msg.Id, ErrMalformedMessage)
	}
	return nil
}

// headerValue 精确匹配（区分大小写）header 名称
func headerValue(headers []*gmailv1.MessagePartHeader, name, fallback string) string {
	for _, h := range headers {
		if h != nil && h.Name == name {
			if h.Value == "" {
				return fallback
			}
			return h.Value
		}
	}
	return fallback
}

// extractBody returns the decoded direct payload when present, otherwise the
// first text/plain or text/html part in list order.
func extractBody(payload *gmailv1.MessagePart) string {
	if payload.Body != nil && payload.Body.Data != "" {
		return decodeBase64(payload.Body.Data)
	}
	for _, part := range payload.Parts {
		if part == nil {
			continue
		}
		if part.MimeType == "text/plain" || part.MimeType == "text/html" {
			if part.Body == nil {
				return ""
			}
			return decodeBase64(part.Body.Data)
		}
	}
	return ""
}

// decodeBase64 Gmail 使用 base64url（通常无 padding），兼容标准 base64
func decodeBase64(data string) string {
	if data == "" {
		return ""
	}
	for _, enc := range []*base64.Encoding{
		base64.URLEncoding,
		base64.RawURLEncoding,
		base64.StdEncoding,
		base64.RawStdEncoding,
	} {
		if b, err := enc.DecodeString(data); err == nil {
			return string(b)
		}
	}
	return ""
}

// CleanBody strips markup, collapses whitespace and truncates to
// model.MaxBodyLength characters. Truncation is not word-aware.
func CleanBody(body string) string {
	body = tagPattern.ReplaceAllString(body, " ")
	body = strings.Join(strings.Fields(body), " ")
	return truncate(body, model.MaxBodyLength)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// FormatInternalDate renders epoch milliseconds as an ISO-8601 UTC string.
func FormatInternalDate(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(isoLayout)
}
