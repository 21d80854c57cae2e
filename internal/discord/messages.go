package discord

import (
	"fmt"
	"strings"
)

func mention(id string) string {
	return "<@" + id + ">"
}

func channelMention(id string) string {
	return "<#" + id + ">"
}

func teamWelcome(req TeamSpaceRequest, textID, voiceID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🎉 **Welcome to Team %s!**\n\n", req.TeamName)
	if req.Description != "" {
		fmt.Fprintf(&b, "**Description:** %s\n", req.Description)
	}
	if req.ProjectIdea != "" {
		fmt.Fprintf(&b, "**Project Idea:** %s\n", req.ProjectIdea)
	}

	members := make([]string, len(req.MemberDiscordIDs))
	for i, id := range req.MemberDiscordIDs {
		members[i] = mention(id)
	}
	fmt.Fprintf(&b, "\n**Team Members:**\n%s\n\n", strings.Join(members, ", "))
	fmt.Fprintf(&b, "**Available Channels:**\n• %s - Main team chat\n• %s - Voice chat\n\n",
		channelMention(textID), channelMention(voiceID))
	b.WriteString("**Next Steps:**\n")
	b.WriteString("1. Introduce yourselves and share your skills\n")
	b.WriteString("2. Discuss project ideas and roles\n")
	b.WriteString("3. Set up your development environment\n")
	b.WriteString("4. Start coding! 🚀\n\n")
	b.WriteString("Good luck with your hackathon project!")
	return b.String()
}

func matchWelcome(a, b Participant, reason string) string {
	if reason == "" {
		reason = defaultMatchReason
	}
	var sb strings.Builder
	sb.WriteString("🤝 **AI-Generated Match!**\n\n")
	sb.WriteString("**Participants:**\n")
	fmt.Fprintf(&sb, "• %s (%s)\n", mention(a.DiscordID), a.label())
	fmt.Fprintf(&sb, "• %s (%s)\n\n", mention(b.DiscordID), b.label())
	fmt.Fprintf(&sb, "**Why you were matched:** %s\n\n", reason)
	sb.WriteString("**Next Steps:**\n")
	sb.WriteString("1. Introduce yourselves and share your skills\n")
	sb.WriteString("2. Discuss potential project ideas\n")
	sb.WriteString("3. See if you'd like to form a team together\n")
	sb.WriteString("4. Use this channel to coordinate and collaborate\n\n")
	sb.WriteString("Good luck with your hackathon journey! 🚀")
	return sb.String()
}
