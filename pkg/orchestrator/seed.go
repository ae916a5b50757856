package orchestrator

import (
	"fmt"
	"strings"
	"time"

	"esupchat/pkg/models"
	"esupchat/pkg/tools"
)

// seedPrompt renders the developer message that opens every conversation.
// It fixes the assistant's role, the answer language, today's date and the
// restaurant id table, so the model can resolve restaurant names without a
// lookup tool.
func seedPrompt(u models.User, today time.Time) string {
	lang := u.PreferredLanguage
	if lang == "" {
		lang = "French"
	}

	var b strings.Builder
	b.WriteString("You are the assistant of the Université Polytechnique Hauts-de-France (UPHF). ")
	b.WriteString("You help students with campus news, staff contacts, university restaurant menus and their course schedule, using the provided tools. ")
	fmt.Fprintf(&b, "Always answer in %s. ", lang)
	fmt.Fprintf(&b, "Today's date is %s. ", today.Format("2006-01-02"))
	if u.PreferredRestaurant != "" {
		fmt.Fprintf(&b, "The user's preferred restaurant id is %s; use it when they ask for a menu without naming a restaurant. ", u.PreferredRestaurant)
	}
	b.WriteString("University restaurant ids: ")
	for i, r := range tools.Restaurants {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s = %s", r.ID, r.Name)
	}
	b.WriteString(". Never invent information; when a tool reports an error, tell the user the data could not be retrieved.")
	return b.String()
}

func apologyText(lang string) string {
	if strings.HasPrefix(strings.ToLower(lang), "fr") {
		return "Désolé, je n'ai pas réussi à rassembler les informations demandées. Pouvez-vous reformuler votre question ?"
	}
	return "Sorry, I could not gather the requested information. Could you rephrase your question?"
}

// deriveTitle truncates the first user message into a conversation title.
func deriveTitle(text string) string {
	const max = 50
	runes := []rune(strings.TrimSpace(text))
	if len(runes) <= max {
		return string(runes)
	}
	return string(runes[:max]) + "…"
}
