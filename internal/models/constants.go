package models

// Metadata keys stored alongside every indexed chunk.
const (
	MetaSource  = "source"
	MetaTitle   = "title"
	MetaChunkID = "chunk_id"
	MetaTokens  = "tokens"
	MetaContext = "context"
)

const (
	ExitCommand      = "exit"
	ContextSeparator = "\n---\n"
)

var (
	// SystemPromptTemplate is rendered with the retrieved chunks as {{.context}}.
	SystemPromptTemplate = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

{{.context}}`

	// CondensePromptTemplate rewrites a follow-up into a standalone question.
	CondensePromptTemplate = `Given the following conversation and a follow up question, rephrase the follow up question to be a standalone question.

Chat History:
{{.chat_history}}
Follow Up Input: {{.question}}
Standalone question:`

	// ContextPromptTemplate asks for a summary situating {{.chunk}} within {{.document}}.
	ContextPromptTemplate = `<document>
{{.document}}
</document>
Here is the chunk we want to situate within the whole document
<chunk>
{{.chunk}}
</chunk>
Please give a short succinct context to situate this chunk within the overall document for the purposes of improving search retrieval of the chunk. Answer only with the succinct context and nothing else.`
)
