package coach

import (
	"fmt"
	"strings"

	"github.com/mbeda/lingua/internal/scenario"
)

// CompletionSentinel is the literal marker the persona appends when it judges
// the scenario goal achieved. It is stripped before the reply leaves this
// package.
const CompletionSentinel = "[CONVERSATION_COMPLETE]"

// freeSystemPrompt drives free-conversation mode: no role-play, no completion.
const freeSystemPrompt = `You are a friendly English conversation partner helping someone practice English.
When the user speaks:
1. Acknowledge what they said
2. Gently correct any grammar or vocabulary errors in a natural way (briefly, don't over-correct)
3. Continue the conversation by asking a follow-up question or adding to the topic
Keep your response conversational, natural and encouraging. Remember the conversation context.`

// freeOpeningSystemPrompt is used when the coach speaks first in free mode.
const freeOpeningSystemPrompt = `You are a friendly English conversation partner helping someone practice English.
Start a natural, friendly conversation. Introduce yourself and ask an engaging question to get the conversation going.`

// scenarioSystemPrompt builds the in-character system instruction for a
// scenario turn, including the completion-marker contract.
func scenarioSystemPrompt(s *scenario.Definition) string {
	return fmt.Sprintf(`You are role-playing as: %s
Scenario: %s
Goal: %s

Your responsibilities:
1. Stay in character as %s
2. Guide the conversation through these steps: %s
3. Gently correct the learner's English errors in a natural way
4. When the goal is achieved, naturally conclude the conversation

IMPORTANT: When you think the conversation goal has been completed, end your response with the marker: %s`,
		s.Role, s.Description, s.Goal, s.Role, strings.Join(s.Steps, ", "), CompletionSentinel)
}

// scenarioOpeningSystemPrompt is used when the coach opens a scenario.
func scenarioOpeningSystemPrompt(s *scenario.Definition) string {
	return fmt.Sprintf(`You are role-playing as: %s
Scenario: %s
Goal: %s

Start the %s scenario naturally. Greet the customer/guest/candidate and begin the interaction according to your role.`,
		s.Role, s.Description, s.Goal, s.Title)
}
