package classify

import (
	"fmt"

	"mailsorter/internal/model"
)

const promptTemplate = `You are an expert email classifier. Analyze the following email and classify it into ONE of these categories:

Categories:
- Important: Personal or work-related emails requiring immediate attention
- Promotions: Sales, discounts, and marketing campaigns
- Social: Emails from social networks, friends, and family
- Marketing: Marketing emails, newsletters, and notifications
- Spam: Unwanted or unsolicited emails
- General: Everything else that doesn't fit the above categories

Email Details:
From: %s
Subject: %s
Content: %s

Respond with ONLY the category name, nothing else. Choose the most appropriate single category.`

// BuildPrompt fills the fixed instruction template for one email. The body
// is used as content, falling back to the snippet when the body is empty.
func BuildPrompt(e model.Email) string {
	content := e.Body
	if content == "" {
		content = e.Snippet
	}
	return fmt.Sprintf(promptTemplate, e.From, e.Subject, content)
}
