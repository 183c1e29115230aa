package prompt

// SystemPrompt is sent as the system message of every generation request.
const SystemPrompt = `You are a code generator that ONLY outputs valid JSON. Never include explanations or markdown. Follow instructions precisely. Always complete your JSON response fully.`

// initialTemplate arguments: brief, checks, attachments note.
const initialTemplate = `Create a simple web application using only vanilla HTML, CSS, and JavaScript.

**Brief:** %s

**CRITICAL EVALUATION CRITERIA (MUST BE SATISFIED):**
%s

**README.md Requirements:**
- Create a detailed, professional README.md that explains:
  - What the application does
  - How to use it
  - Features and functionality
  - Any special instructions or requirements
  - Make it comprehensive and well-structured
%s
**Technical Requirements:**
- Use ONLY vanilla HTML, CSS, JavaScript (no frameworks or libraries)
- Create code that satisfies ALL evaluation criteria above
- Main entry point must be index.html
- Ensure all functionality works as specified in the brief
- Pay special attention to any URL parameters, timing requirements, or specific behaviors mentioned in evaluation criteria

` + outputFormatSection + `
Example structure:
{
  "index.html": "<!DOCTYPE html>\n<html>...</html>",
  "README.md": "# Title\n\nDescription",
  "style.css": "body { margin: 0; }",
  "script.js": "console.log('hello');"
}

Only include files you're creating/modifying. Return ONLY the JSON, nothing else.`

// modificationTemplate arguments: brief, checks, existing code, attachments note.
const modificationTemplate = `You are modifying an EXISTING web application. Build upon the current code.

**New Requirements to ADD/MODIFY:** %s

**CRITICAL EVALUATION CRITERIA (MUST BE SATISFIED):**
%s

**README.md Requirements:**
- Update the README.md to reflect any new features or changes
- Ensure it remains detailed and professional
- Document any new functionality added in this round
- Keep it comprehensive and well-structured

**Current Code (DO NOT DISCARD, BUILD UPON THIS):**
%s
%s
**CRITICAL Instructions:**
- **BUILD UPON** the existing code, don't start from scratch
- **ADD or MODIFY** features as requested in the new requirements
- **PRESERVE** existing functionality unless explicitly asked to remove it
- **EXTEND** the code, don't replace it entirely
- **SATISFY ALL EVALUATION CRITERIA** listed above
- Pay special attention to URL parameters, timing requirements, or specific behaviors
- Keep using vanilla HTML, CSS, JavaScript only
- Update README.md with new features and changes
- **NEVER include attachments.js in your output** (it's auto-generated by the system)

` + outputFormatSection + `
Example:
{
  "index.html": "<!DOCTYPE html>\n<html>...</html>",
  "README.md": "# Updated\n\nChanges made"
}

Only include files you're modifying. Return ONLY the JSON, nothing else.`

const outputFormatSection = `**Output Format:**
Return ONLY a valid JSON object. No explanations, no markdown, no extra text.

CRITICAL JSON REQUIREMENTS:
- Start with { and end with }
- Use double quotes for keys and string values
- Properly escape special characters: \" for quotes, \n for newlines, \\ for backslashes
- NO trailing commas before closing braces
- NO comments in JSON
`

// initialAttachmentsTemplate argument: bulleted attachment names.
const initialAttachmentsTemplate = `
**Available Attachments:**
%s

**CRITICAL - How to access and use attachments:**
- All attachments are in ` + "`attachments.js`" + ` (already created, just import it)
- Import: ` + "`<script src=\"attachments.js\"></script>`" + `
- Access: ` + "`window.attachments[\"filename.ext\"]`" + ` returns a data URI string
- **DATA FORMAT**: Each value is a base64-encoded data URI like "data:image/png;base64,iVBORw..." or "data:text/csv;base64,bmFtZS..."
- **IMPORTANT**: NEVER embed data URIs directly in HTML attributes! Use JavaScript instead:
  - WRONG: ` + "`<img src=\"data:image/png;base64,iVBORw...\">`" + `
  - CORRECT: ` + "`<img id=\"myImg\"><script>document.getElementById('myImg').src = window.attachments['image.png'];</script>`" + `
- **YOU MUST DECODE text data**: For CSV/JSON, use ` + "`atob(window.attachments['data.csv'].split(',')[1])`" + `
- For images, use JavaScript to set src from window.attachments
- The brief will tell you exactly what to do with each attachment
- Follow the brief's instructions precisely
`

// modificationAttachmentsTemplate argument: bulleted attachment names.
const modificationAttachmentsTemplate = `
**Available Attachments:**
%s

**CRITICAL:**
- Attachments are in ` + "`attachments.js`" + ` (auto-generated, do NOT modify or regenerate it)
- Access: ` + "`window.attachments[\"filename.ext\"]`" + ` returns a base64-encoded data URI
- Import: ` + "`<script src=\"attachments.js\"></script>`" + `
- **NEVER embed data URIs directly in HTML!** Use JavaScript to set them:
  - CORRECT: ` + "`<img id=\"img1\"><script>document.getElementById('img1').src = window.attachments['image.png'];</script>`" + `
- **MUST DECODE text data**: For CSV/JSON, use: ` + "`atob(window.attachments['file.csv'].split(',')[1])`" + `
- Follow the brief's instructions for processing these attachments
`
