package usecase

// DefaultSystemPrompt is sent as the leading system message of every model call,
// followed by the fused evidence context.
const DefaultSystemPrompt = `You are a helpful AI assistant with access to a knowledge base of uploaded documents and web search capabilities.

Your role:
- Answer questions based on the provided context from the documents or web search results
- If the context doesn't contain enough information, say so clearly
- Cite the source document or URL when referencing specific information
- Be concise but thorough
- When using web search results, cite the source URLs
- Prioritize information from uploaded documents over web search when both are available

Always format your response clearly and cite sources when possible.`

const (
	documentContextHeader = "=== RELEVANT DOCUMENT CONTEXT ===\n"
	documentContextFooter = "\n=== END OF CONTEXT ===\n"
	documentInstructions  = "\nInstructions: Use the above context to answer the user's question. " +
		"If the context doesn't contain enough information, say so. " +
		"Cite the source document when referencing specific information.\n"
	unknownDocumentName = "Unknown Document"
	unknownDocumentID   = "unknown"

	msgNoDocuments      = "No relevant documents found in the knowledge base."
	msgNoRelevantChunks = "No highly relevant documents found. The query may not match the uploaded documents."
	msgRetrievalFailed  = "Error retrieving relevant documents from the knowledge base."
	msgBelowThreshold   = "No documents found with sufficient relevance (minimum score: %v)."

	webContextHeader = "=== WEB SEARCH RESULTS ===\n"
	webContextFooter = "\n=== END OF WEB SEARCH RESULTS ===\n"
	webInstructions  = "\nInstructions: Use the above web search results to answer the user's question. " +
		"Cite the source URLs when referencing information from web search.\n"
	unknownWebSource = "Unknown source"

	msgNoWebResults    = "No relevant web search results found."
	msgWebSearchFailed = "Error performing web search."
)

const (
	fusedDocumentLabel = "=== DOCUMENT CONTEXT (from uploaded documents) ===\n\n"
	fusedWebLabel      = "=== WEB SEARCH RESULTS ===\n\n"

	instructBothSources = "Please answer the user's question using BOTH the document context and web search results provided above. " +
		"Prioritize information from uploaded documents when available, but also incorporate relevant information from web search. " +
		"Cite the source documents or URLs when referencing specific information."
	instructDocumentsOnly = "Please answer the user's question based on the context provided above from the uploaded documents."
	instructWebOnly       = "Please answer the user's question based on the web search results provided above. " +
		"Cite the source URLs when referencing information."
	noteWebNoResults = "Note: No relevant documents were found in the knowledge base and web search did not return results. "
	noteWebDisabled  = "Note: No relevant documents were found in the knowledge base and web search is disabled by the user. "
	instructNoInfo   = "Please inform the user that you don't have relevant information to answer this question."
)
