package composer

import (
	"fmt"
	"strings"

	"github/itish2003/docchat/models"
)

const fallbackEmpty = "I received your message. How can I help you?"

const fallbackTemplate = `# I Understand Your Question

You're asking about: **"%s"**

## Current Status
The answer service is unavailable right now, so I can't search your documents or generate a full answer.
This usually means the embedding service or the language model could not be reached.

## What You Can Do
- **Try again** in a moment
- **Check** that the embedding service and ` + "`GEMINI_API_KEY`" + ` are configured
- **Rephrase** the question if the problem persists

> Your documents are safe; nothing was lost.`

// Fallback returns the deterministic answer used when retrieval or generation
// fails. It never cites anything.
func Fallback(messages []models.Message) models.Answer {
	userMessage := strings.TrimSpace(models.LatestUserMessage(messages))
	answer := models.Answer{Citations: []models.Citation{}, Intent: string(IntentGeneral)}
	if userMessage == "" {
		answer.Answer = fallbackEmpty
		return answer
	}
	answer.Intent = string(Classify(userMessage))
	answer.Answer = fmt.Sprintf(fallbackTemplate, userMessage)
	return answer
}
