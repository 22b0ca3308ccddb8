package persona

import (
	"fmt"
	"strings"
)

// Fallbacks used when a profile field is absent. An absent profile row is not
// an error; the clone answers as a neutral professional.
const (
	fallbackHeadline      = "a professional"
	fallbackPurpose       = "To assist users with helpful, accurate information."
	fallbackBiography     = "Not provided."
	fallbackSpeakingStyle = "Professional, helpful, and concise."
	fallbackInstructions  = "- Be helpful and accurate.\n- Provide clear, concise responses."
	fallbackKnowledge     = "No specific knowledge available."
)

// SystemPrompt renders the chat system prompt from an optional profile and
// retrieved knowledge chunks.
//
// The function is pure and total: nil profile, empty fields and empty chunks
// all produce a valid prompt, and identical inputs produce identical output.
func SystemPrompt(p *Profile, chunks []string) string {
	var b strings.Builder

	b.WriteString("You are an AI clone of ")
	b.WriteString(orDefault(headline(p), fallbackHeadline))
	b.WriteString(".\n\nPURPOSE:\n")
	b.WriteString(orDefault(purpose(p), fallbackPurpose))
	b.WriteString("\n\nYOUR BIOGRAPHY:\n")
	b.WriteString(orDefault(description(p), fallbackBiography))
	b.WriteString("\n\nYOUR SPEAKING STYLE:\n")
	b.WriteString(orDefault(speakingStyle(p), fallbackSpeakingStyle))
	b.WriteString("\n\nCUSTOM INSTRUCTIONS:\n")
	b.WriteString(orDefault(numberedInstructions(p), fallbackInstructions))
	b.WriteString("\n\nKNOWLEDGE BASE CONTEXT:\n")
	b.WriteString(orDefault(joinChunks(chunks), fallbackKnowledge))
	b.WriteString("\n\nRemember: Be authentic, human, and true to your personality. Never sound robotic.")

	return b.String()
}

// VoicePrompt renders the shorter spoken-answer system prompt.
// It omits purpose and custom instructions, and leaves the knowledge section
// empty rather than substituting a fallback sentence.
func VoicePrompt(p *Profile, chunks []string) string {
	var b strings.Builder

	b.WriteString("You are an AI clone of ")
	b.WriteString(orDefault(headline(p), fallbackHeadline))
	b.WriteString(".\nYour Biography: ")
	b.WriteString(orDefault(description(p), fallbackBiography))
	b.WriteString("\nYour Speaking Style: ")
	b.WriteString(orDefault(speakingStyle(p), fallbackSpeakingStyle))
	b.WriteString("\n\nInstructions:\n")
	b.WriteString("- Answer the user's question based on your personality and the provided knowledge.\n")
	b.WriteString("- Keep your answer concise as it will be spoken out loud.\n")
	b.WriteString("- Do NOT sound robotic. Be human, engaging, and authentic.\n")
	b.WriteString("\nKnowledge Base Context:\n")
	b.WriteString(joinChunks(chunks))

	return b.String()
}

// numberedInstructions renders instructions as a 1-based numbered list in
// insertion order. Returns "" when the profile has no instructions.
func numberedInstructions(p *Profile) string {
	if p == nil || len(p.Instructions) == 0 {
		return ""
	}
	lines := make([]string, len(p.Instructions))
	for i, inst := range p.Instructions {
		lines[i] = fmt.Sprintf("%d. %s", i+1, inst)
	}
	return strings.Join(lines, "\n")
}

// joinChunks joins knowledge chunks with a blank line between them.
func joinChunks(chunks []string) string {
	return strings.Join(chunks, "\n\n")
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func headline(p *Profile) string {
	if p == nil {
		return ""
	}
	return p.Headline
}

func description(p *Profile) string {
	if p == nil {
		return ""
	}
	return p.Description
}

func purpose(p *Profile) string {
	if p == nil {
		return ""
	}
	return p.Purpose
}

func speakingStyle(p *Profile) string {
	if p == nil {
		return ""
	}
	return p.SpeakingStyle
}
