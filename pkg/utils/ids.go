package utils

import (
	"strings"

	"github.com/google/uuid"
)

// GenUserID returns a new unique user id.
func GenUserID() string { return "u_" + compactUUID() }

// GenConversationID returns a new unique conversation id.
func GenConversationID() string { return "c_" + compactUUID() }

// GenMessageID returns a new unique message id.
func GenMessageID() string { return "m_" + compactUUID() }

func compactUUID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
