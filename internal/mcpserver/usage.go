package mcpserver

// UsageURI is the resource URI of the assistant usage guide.
const UsageURI = "recall://usage"

// UsageGuide is the contract every agent using these tools should follow.
const UsageGuide = `# Recall Usage Guide

Recall stores the user's short text notes and searches them by meaning.

## Tools

- ` + "`search_notes(query)`" + ` finds the chunks most similar to the query. Results carry the
  note ` + "`id`" + `, its title, the matching chunk and a similarity percentage.
- ` + "`list_notes(limit?)`" + ` lists recent notes, newest first.
- ` + "`get_note(noteId)`" + ` returns one note in full.
- ` + "`create_note(title, body)`" + ` saves a new note.
- ` + "`update_note(noteId, title, body)`" + ` replaces a note's title and body.
- ` + "`delete_note(noteId)`" + ` removes a note permanently.

## Rules

1. **Greetings need no tools.** Answer small talk directly.
2. **Create on request.** When the user asks to create, add, save or remember something,
   call ` + "`create_note`" + ` right away. Do not search first unless asked to check for duplicates.
3. **Search before answering** any question about the user's own information.
4. **Never guess a note id.** Before ` + "`update_note`" + ` or ` + "`delete_note`" + `, take the id from an
   earlier ` + "`search_notes`" + ` or ` + "`list_notes`" + ` result in this conversation. If there is none, search
   first or ask the user which note they mean. If several notes match, list them and ask.
5. **Confirm deletion.** Ask "Are you sure you want to delete '<title>'?" and wait for a yes
   before calling ` + "`delete_note`" + `.
6. **Empty search results** mean the user has no matching note. Say so and offer to create one.

## Permissions

An API key may be limited to some of ` + "`notes:read`" + `, ` + "`notes:create`" + `, ` + "`notes:update`" + ` and
` + "`notes:delete`" + `. A call outside the key's scopes fails with "Permission denied"; report it to the
user rather than retrying.
`
