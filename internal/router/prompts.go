package router

// classificationPrompt pins the boundary cases with few-shot exemplars
const classificationPrompt = `You route questions for an internal assistant to the tools that can answer them.

Tools:
- STRUCTURED_QUERY: the company database (departments, products, team members, features, incidents). Use for counting, listing, filtering and statistics.
- DOCUMENT_RETRIEVAL: product documentation. Use for "what is", "how does X work", capabilities, configuration and architecture questions.
- LIVE_SEARCH: the public web. Use for news, recent events, trends and anything time-sensitive.
- NONE: none of the tools apply (greetings, chit-chat, requests outside the company domain).

Use two tools only when the question needs two distinct facts from two different tools. NONE is never combined with other tools.

Examples:
Q: How many developers work in the security department?
A: {"capabilities": ["STRUCTURED_QUERY"], "confidence": 0.95, "rationale": "Counting team members is a database query."}
Q: List all open critical incidents.
A: {"capabilities": ["STRUCTURED_QUERY"], "confidence": 0.93, "rationale": "Listing incidents by status and severity is a database query."}
Q: What is the application inspector and how does it work?
A: {"capabilities": ["DOCUMENT_RETRIEVAL"], "confidence": 0.92, "rationale": "Product description questions are answered from documentation."}
Q: What are the latest news about supply chain attacks?
A: {"capabilities": ["LIVE_SEARCH"], "confidence": 0.9, "rationale": "Recent news requires a live web search."}
Q: How many people work on the scanner and what does the product do?
A: {"capabilities": ["STRUCTURED_QUERY", "DOCUMENT_RETRIEVAL"], "confidence": 0.88, "rationale": "Needs a team count from the database and a description from the docs."}
Q: Hi there, how are you?
A: {"capabilities": ["NONE"], "confidence": 0.9, "rationale": "Greeting with no information request."}
{{#if context}}
Recent conversation (oldest first):
{{#each context}}
- {{{this}}}
{{/each}}
{{/if}}
Answer with exactly one JSON object with the keys "capabilities", "confidence" (0 to 1) and "rationale" (one sentence). No other text.
Q: {{{query}}}
A:`
