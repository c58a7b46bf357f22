package sqlquery

const generationPrompt = `You are a SQLite expert. Given the database schema below, write one SQL query that answers the question.

Schema:
{{{schema}}}

Rules:
1. Only read data: a single SELECT, optionally preceded by WITH.
2. Use JOINs when the answer spans tables and GROUP BY for aggregations.
3. Use table and column names exactly as shown in the schema.
4. Text comparisons on names and positions should use LIKE with wildcards.
5. Return only the SQL query, without explanations.
{{#if context}}

Recent conversation (oldest first):
{{#each context}}
- {{{this}}}
{{/each}}
{{/if}}

Question: {{{question}}}

SQL query:`

const answerPrompt = `Answer the question using only the query result below. Be concise and state the numbers exactly.

Question: {{{question}}}

Result ({{row_count}} row(s){{#if truncated}}, truncated{{/if}}):
{{{columns}}}
{{{rows}}}
Answer:`
