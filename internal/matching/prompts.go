package matching

import (
	"fmt"
	"strings"

	"github.com/sundai/hackathon-api/internal/db/models"
)

const notSpecified = "Not specified"

const scoreSystemPrompt = "You evaluate how well two hackathon participants would work together. " +
	"Reply with a single number between 0.0 and 1.0 and nothing else."

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}

func joinOr(items []string, fallback string) string {
	if len(items) == 0 {
		return fallback
	}
	return strings.Join(items, ", ")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func writeParticipant(b *strings.Builder, label string, p *models.Profile) {
	fmt.Fprintf(b, "%s:\n", label)
	fmt.Fprintf(b, "- Skills: %s\n", joinOr(p.Skills, notSpecified))
	fmt.Fprintf(b, "- Interests: %s\n", joinOr(p.Interests, notSpecified))
	fmt.Fprintf(b, "- Experience Level: %s\n", orNotSpecified(string(p.Level())))
	fmt.Fprintf(b, "- Bio: %s\n", orNotSpecified(deref(p.Bio)))
	fmt.Fprintf(b, "- Team Size Preference: %s\n", orNotSpecified(string(p.TeamSize())))
}

func scorePrompt(a, b *models.Profile, focusSkills []string) string {
	var sb strings.Builder
	sb.WriteString("Analyze the compatibility between two hackathon participants and provide a match score from 0.0 to 1.0.\n\n")
	writeParticipant(&sb, "Participant 1", a)
	sb.WriteString("\n")
	writeParticipant(&sb, "Participant 2", b)
	fmt.Fprintf(&sb, "\nSkills Focus Areas: %s\n\n", joinOr(focusSkills, notSpecified))
	sb.WriteString("Consider:\n")
	sb.WriteString("1. Skill complementarity (different but complementary skills)\n")
	sb.WriteString("2. Shared interests and project alignment\n")
	sb.WriteString("3. Experience level compatibility\n")
	sb.WriteString("4. Team size preferences\n")
	sb.WriteString("5. Communication style compatibility\n\n")
	sb.WriteString("Return only a number between 0.0 and 1.0 representing the match score.")
	return sb.String()
}

func reasonPrompt(a, b *models.Profile) string {
	var sb strings.Builder
	sb.WriteString("Explain why these two hackathon participants would make a great team in 2-3 concise sentences.\n\n")
	for i, p := range []*models.Profile{a, b} {
		fmt.Fprintf(&sb, "Participant %d: %s\n", i+1, p.Username)
		fmt.Fprintf(&sb, "- Skills: %s\n", joinOr(p.Skills, notSpecified))
		fmt.Fprintf(&sb, "- Bio: %s\n\n", orNotSpecified(deref(p.Bio)))
	}
	sb.WriteString("Focus on skill complementarity, shared interests, and potential project synergies.")
	return sb.String()
}

func memberLine(p *models.Profile) string {
	bio := deref(p.Bio)
	if bio == "" {
		bio = "No bio"
	}
	return fmt.Sprintf("%s: %s - %s", p.Username, joinOr(p.Skills, "No skills specified"), bio)
}

func teamPrompt(projectIdea string, requiredSkills []string, teamSize int, pool []*models.Profile) string {
	var sb strings.Builder
	sb.WriteString("Given this hackathon project idea and required skills, recommend the best team composition from these participants.\n\n")
	fmt.Fprintf(&sb, "Project Idea: %s\n", projectIdea)
	fmt.Fprintf(&sb, "Required Skills: %s\n", joinOr(requiredSkills, notSpecified))
	fmt.Fprintf(&sb, "Team Size: %d people\n\n", teamSize)
	sb.WriteString("Available Participants:\n")
	for _, p := range pool {
		sb.WriteString(memberLine(p))
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "\nReturn a JSON array of %d participant usernames that would work best together for this project.\n", teamSize)
	sb.WriteString("Consider skill complementarity, experience levels, and team dynamics.")
	return sb.String()
}

func teamReasonPrompt(projectIdea string, team []*models.Profile) string {
	var sb strings.Builder
	sb.WriteString("Explain why this team composition would be excellent for this hackathon project.\n\n")
	fmt.Fprintf(&sb, "Project: %s\n\nTeam Members:\n", projectIdea)
	for _, p := range team {
		sb.WriteString(memberLine(p))
		sb.WriteString("\n")
	}
	sb.WriteString("\nProvide 2-3 sentences explaining the team's strengths and how they complement each other.")
	return sb.String()
}
