package mcpserver

// CriteriaContract describes the structured-criteria document that LLM
// consumers should produce before calling compile_query.
const CriteriaContract = `# Ansuz Criteria Contract

A criteria document is a JSON or YAML object with a ` + "`" + `criteria` + "`" + ` list.
Each entry has four members:

| member        | type                    | notes                                   |
|---------------|-------------------------|-----------------------------------------|
| category      | string                  | one of the categories below             |
| subcategory   | string                  | meaning depends on the category         |
| subject       | string or list of string| an empty string is allowed              |
| operator      | string                  | ` + "`" + `=` + "`" + `, ` + "`" + `>` + "`" + `, ` + "`" + `>=` + "`" + `, ` + "`" + `<` + "`" + `, ` + "`" + `<=` + "`" + `                      |

Optional top-level members:

- ` + "`" + `query` + "`" + `: the natural-language request, kept as the compilation title.
- ` + "`" + `context` + "`" + `: ` + "`" + `current_user` + "`" + `, ` + "`" + `current_folder` + "`" + `, ` + "`" + `current_date` + "`" + ` (RFC 3339).

## Categories

### file_identification
- ` + "`" + `asset_domain` + "`" + `: e.g. Document, Image. Emits ` + "`" + `assetDomain:<v>` + "`" + `.
- ` + "`" + `extension` + "`" + `: e.g. pdf, docx. Emits ` + "`" + `extension:<v>` + "`" + `.
- Domains and extensions are ORed together.

### personal_context
- ` + "`" + `my_created` + "`" + `, ` + "`" + `my_modified` + "`" + `, ` + "`" + `my_assigned` + "`" + `. Subject is ignored; the current user is used.

### date_operations
- ` + "`" + `created` + "`" + `, ` + "`" + `modified` + "`" + `, ` + "`" + `imported` + "`" + `, ` + "`" + `uploaded` + "`" + `, ` + "`" + `due_date` + "`" + `.
- Subject is a date expression: ` + "`" + `today` + "`" + `, ` + "`" + `yesterday` + "`" + `, ` + "`" + `this week` + "`" + `,
  ` + "`" + `last 2 weeks` + "`" + `, ` + "`" + `past 30 days` + "`" + `, ` + "`" + `next month` + "`" + `, ` + "`" + `March 1st` + "`" + `, ` + "`" + `2024-02-10` + "`" + `.
- A ` + "`" + `>=` + "`" + ` and a ` + "`" + `<=` + "`" + ` on the same field are merged into one range.

### workflow_status
- Any subcategory. Each status is matched against status, approvalState and cf_Status.

### folder_navigation
- ` + "`" + `folder_path` + "`" + `: an absolute path, matched exactly.
- ` + "`" + `folder_name` + "`" + `: a folder name, resolved under the current folder.
- ` + "`" + `ancestor_path` + "`" + `: matches everything below the path.

### person_reference
- ` + "`" + `creator` + "`" + `, ` + "`" + `modifier` + "`" + `, ` + "`" + `tutor` + "`" + `, ` + "`" + `assignee` + "`" + `. Subject names the person(s).

## Output

Category groups are joined with ` + "`" + `AND` + "`" + ` in first-seen order. Reserved
query characters in subjects are escaped, and values containing whitespace are quoted.

## Example

` + "```" + `yaml
query: approved pdfs I created last week
criteria:
  - {category: workflow_status, subcategory: approval_state, subject: Approved, operator: "="}
  - {category: file_identification, subcategory: extension, subject: pdf, operator: "="}
  - {category: personal_context, subcategory: my_created, subject: "", operator: "="}
  - {category: date_operations, subcategory: created, subject: last week, operator: "="}
` + "```" + `
`
