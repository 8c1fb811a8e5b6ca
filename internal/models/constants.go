package models

const (
	// RefusalSentinel is returned verbatim whenever the documents do not support an answer
	RefusalSentinel = "This information is not available in the provided documents."

	// RefusalPlaceholder is the token some models echo instead of the sentinel text
	RefusalPlaceholder = "NO_ANSWER"

	ThinkTag         = `(?s)<think>.*?</think>`
	ContextSeparator = "\n\n"

	// WordPattern matches the word tokens shared by lexical scoring and the hashing embedder
	WordPattern = `[\p{L}\p{N}]+`

	// MinTokenChars is the shortest token that carries meaning
	MinTokenChars = 3

	FormatPDF  = "pdf"
	FormatDOCX = "docx"
)

var (
	// SupportedFormats lists the upload format tags accepted by the extractor
	SupportedFormats = []string{FormatPDF, FormatDOCX}

	// LeakedLabels are scaffolding labels stripped from generated answers
	LeakedLabels = []string{"Answer:", "Explanation:", "Human:", "User:", "Assistant:", "Note:", "Question:", "Context:"}

	// MetadataDenylist marks front-matter boilerplate; an answer containing any of these is refused
	MetadataDenylist = []string{"Packt", "Publishing", "Edition", "Copyright", "All rights reserved"}

	// DefaultStopWords are question tokens ignored by the keyword scorer
	DefaultStopWords = []string{
		"the", "and", "for", "are", "was", "were", "been", "being", "has", "have", "had",
		"this", "that", "these", "those", "with", "from", "into", "onto", "about", "over",
		"under", "between", "through", "during", "before", "after", "than", "then", "there",
		"their", "they", "them", "its", "his", "her", "she", "him", "you", "your", "our",
		"any", "all", "some", "not", "but", "also", "which", "who", "whom", "whose", "where",
		"what", "how", "why", "when", "does", "did", "can", "could", "would", "should",
		"shall", "will", "may", "might", "must", "use", "using", "used", "code", "file",
		"make", "create", "tell", "explain", "describe", "list", "give", "please", "document",
		"documents", "mention", "mentioned", "mentions", "discussed", "say", "says", "said",
		"here", "other", "such", "only", "more", "most", "very", "just", "each",
	}
)

var (
	// SystemPromptTemplate takes the refusal sentinel
	SystemPromptTemplate = `You are a document-grounded question answering assistant.
Answer the question using ONLY the information in the document text you are given.
You may paraphrase and combine statements from the document, but you MUST NOT add outside knowledge.

Rules:
- Answer in one or two clear sentences.
- Do NOT include book titles, author names, copyright notices or publication details.
- Do NOT cite sources, mention the document, explain your reasoning or restate the question.

If the document does NOT contain enough information to answer, reply EXACTLY with:
%s`

	// QuestionPromptTemplate takes the joined passages and the question
	QuestionPromptTemplate = `Document:
%s

Question:
%s`
)
