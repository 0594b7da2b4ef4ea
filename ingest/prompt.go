package ingest

import "fmt"

const extractionSystemPrompt = `You are a memory extraction AI for a personal knowledge system. Your job is to analyze text and extract two types of memories.

## EPISODIC MEMORIES (events and interactions)
Specific events, decisions, conversations or milestones. Each has:
- content: a clear, standalone summary of what happened (50-200 chars)
- memoryType: one of "interaction", "decision", "preference", "feedback", "milestone"
- importance: 0.0-1.0 (higher = more significant)

Memory types:
- "interaction": general conversations or exchanges
- "decision": choices made, directions taken, options selected
- "preference": expressed likes, dislikes, how things should be done
- "feedback": reactions to work, opinions, reviews
- "milestone": achievements, completions, launches

## SEMANTIC MEMORIES (facts and knowledge)
Learned facts, preferences, patterns and skills. Each has:
- category: one of "preference", "skill", "pattern", "fact"
- key: a unique snake_case identifier (e.g. "preferred_coding_language")
- value: the fact itself, clear and specific
- confidence: 0.0-1.0 (how certain the information is)

Categories:
- "preference": likes, dislikes, preferred ways of working
- "skill": abilities, expertise, proficiency
- "pattern": habits and behavioural tendencies
- "fact": objective facts about the person (location, job, etc.)

## RULES
1. Extract meaningful memories only; skip trivial content.
2. Be specific and actionable.
3. Do not extract the same fact twice.
4. Use consistent snake_case keys.
5. Give explicitly stated things higher importance/confidence than inferred ones.
6. Include context when it adds value.

Respond with valid JSON only, no markdown formatting.`

const userPromptTemplate = `Analyze the following content from file "%s" and extract memories.

<content>
%s
</content>

Extract up to %d episodic memories and %d semantic memories.

Respond with this exact JSON structure:
{
  "episodicMemories": [
    {
      "content": "string",
      "memoryType": "interaction|decision|preference|feedback|milestone",
      "importance": 0.0-1.0,
      "context": "optional string"
    }
  ],
  "semanticMemories": [
    {
      "category": "preference|skill|pattern|fact",
      "key": "snake_case_key",
      "value": "string",
      "confidence": 0.0-1.0,
      "source": "optional string"
    }
  ],
  "summary": "Brief summary of what was extracted",
  "processingNotes": ["Any notes about the extraction process"]
}`

func buildUserPrompt(label, content string, opts ExtractOptions) string {
	return fmt.Sprintf(userPromptTemplate, label, content, opts.MaxEpisodic, opts.MaxSemantic)
}
