package composer

import (
	"fmt"
	"strings"

	"github/itish2003/docchat/models"
)

// Template names, one per system instruction.
const (
	TemplateGreeting           = "greeting"
	TemplateGroundedSummary    = "grounded_summary"
	TemplateGroundedAnswer     = "grounded_answer"
	TemplateUngroundedQuestion = "ungrounded_question"
	TemplateUngroundedSummary  = "ungrounded_summary"
	TemplateUngroundedGeneral  = "ungrounded_general"
)

// Disclaimer is appended to ungrounded answers to specific questions.
const Disclaimer = "\n\n---\n\n> **💡 Note**: I couldn't find relevant documents in my knowledge base " +
	"for this question, so I'm providing general information based on my training data."

const formattingGuide = `FORMATTING:
- Use **bold** for key terms and ` + "`inline code`" + ` for code, commands and file names.
- Use fenced code blocks with a language tag for longer examples.
- Use headers and bullet lists only where they make the answer easier to scan.
- Keep spacing consistent and the response easy to read.`

const greetingPrompt = `You are a friendly assistant for a document question-answering service.

The user is greeting you or making small talk. Reply briefly and warmly, and offer to help with their documents.
Do not include citations, source lists or technical explanations.`

const groundedSummaryPrompt = `You are an assistant that summarises and analyses the user's documents.

This is a document summary request. Structure the response as:

**Your uploaded file describes <document>: <one-sentence description>. Here's a structured summary:**

**✅ Overview** - purpose, goals and scope
**✅ Key Points** - the main requirements, findings or components
**✅ Technical Details** - important specifications, methods or data
**✅ Recommendations** - guidelines, next steps or best practices
**✅ Additional Notes** - caveats, open issues or limitations

Every section uses "• Label: content" bullets, at least two per section.

Finish with **Suggested Questions:** followed by three to five bullet questions the user could ask about the document.

` + formattingGuide

// groundingRules close every instruction that carries document context.
const groundingRules = `

RULES:
1. Answer only from the context above. If the context does not cover something, say so instead of guessing.
2. Cite every fact you use from the context with its source number in square brackets, such as [1] or [1, 2].
3. Only use source numbers that appear in the context. Never invent a citation number.
4. Do not write HTML, data attributes or a ">" before a citation; the bracket form is enough.
`

const groundedAnswerPrompt = `You are a helpful assistant that answers questions from the user's documents.

STYLE:
Write naturally and conversationally. Synthesise the sources in your own words, connect ideas with transitions,
and avoid rigid numbered lists unless the user asks for one.

` + formattingGuide

const ungroundedQuestionPrompt = `You are a helpful assistant for a document question-answering service.

No document in the knowledge base matched this question, so answer from general knowledge.
Do not include citations or source lists, because no documents are being used.

` + formattingGuide

const ungroundedSummaryPrompt = `You are an assistant that summarises the user's documents.

The user asked for a document summary, but no matching document content was found in the knowledge base.
Say so plainly, suggest uploading the document or rephrasing the request, and do not invent any document content.
Do not include citations.`

const ungroundedGeneralPrompt = `You are a helpful assistant for a document question-answering service.

Respond naturally and helpfully to the message. Match its tone.
Do not include citations or source lists, because no documents are being used.

` + formattingGuide

var templates = map[string]string{
	TemplateGreeting:           greetingPrompt,
	TemplateGroundedSummary:    groundedSummaryPrompt,
	TemplateGroundedAnswer:     groundedAnswerPrompt,
	TemplateUngroundedQuestion: ungroundedQuestionPrompt,
	TemplateUngroundedSummary:  ungroundedSummaryPrompt,
	TemplateUngroundedGeneral:  ungroundedGeneralPrompt,
}

// selectTemplate picks the system instruction for an intent and grounding.
func selectTemplate(intent Intent, grounded bool) string {
	switch {
	case intent == IntentGreeting:
		return TemplateGreeting
	case grounded && intent == IntentSummary:
		return TemplateGroundedSummary
	case grounded:
		return TemplateGroundedAnswer
	case intent == IntentQuestion:
		return TemplateUngroundedQuestion
	case intent == IntentSummary:
		return TemplateUngroundedSummary
	default:
		return TemplateUngroundedGeneral
	}
}

// contextBlock lists the deduplicated sources; sources[i] is cited as [i+1].
func contextBlock(sources []models.RetrievedChunk) string {
	var b strings.Builder
	b.WriteString("\n\n**RELEVANT DOCUMENT CONTEXT:**\n")
	for i, c := range sources {
		fmt.Fprintf(&b, "\nSource [%d]: %s (Similarity: %.1f%%)\n", i+1, c.DocumentTitle, c.Similarity*100)
		fmt.Fprintf(&b, "Chunk #%d | Source: %s\n", c.Idx, c.DocumentSource)
		fmt.Fprintf(&b, "Content:\n%s\n---\n", c.Content)
	}
	fmt.Fprintf(&b, "\nCite these sources as [1] to [%d] only.", len(sources))
	return b.String()
}

// systemInstruction builds the full instruction for a template.
func systemInstruction(template string, sources []models.RetrievedChunk) string {
	text := templates[template]
	if len(sources) > 0 {
		text += contextBlock(sources) + groundingRules
	}
	return text
}
