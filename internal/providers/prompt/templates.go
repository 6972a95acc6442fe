package prompt

// QuestionPlaceholder is replaced with the user input in every template.
const QuestionPlaceholder = "{question}"

// DefaultEnhancementTemplate is used when an enhancement is requested without
// a template of its own.
const DefaultEnhancementTemplate = `
Improve the given initial prompt to make it clearer, more effective, and aligned with the task objectives and expectations.

# Steps

1. Carefully review the initial prompt provided.
2. Identify unclear instructions, missing details, or any ambiguity that could affect the model's performance.
3. Add specific guidelines, necessary context, or well-defined examples if needed.
4. Make sure the prompt provides a clear and straightforward reasoning process before concluding the answer.
5. Ensure the expected output is explicitly defined, including format, structure, and requirements.
6. Avoid unnecessary complexity, focus on simplicity and clarity.

# Output Format

An enhanced version of the prompt with clear expectations, structured reasoning before
conclusions and a defined output format.

Give me just the enhanced version of the prompt, no other text.

*USER PROMPT*
{question}
`

// RefineTextTemplate rewrites a prompt before a text completion.
const RefineTextTemplate = `
Improve the *USER PROMPT* prompt to make it clearer, more effective, and aligned with the task objectives and expectations.

# Steps

1. Carefully review the initial prompt provided.
2. Identify unclear instructions, missing details, or any ambiguity that could affect the model's performance.
3. Add specific guidelines, necessary context, or well-defined examples if needed.
4. Make sure the prompt asks for the reasoning before the conclusion.
5. Ensure the expected output is explicitly defined, including format, structure, and requirements.

# Example

**Initial Prompt (Input)**:
"Explain why a tomato is a fruit, and then list some related fruits."

**Enhanced Prompt (Output)**:
"Explain step-by-step why a tomato is scientifically classified as a fruit. Start by describing the botanical characteristics that belong to fruits. After explaining, provide a list of other fruits that share similar characteristics as a tomato, such as being soft and containing seeds."

Give me just the enhanced version of the prompt, no other text.

*USER PROMPT*
{question}
`

// RefineVideoTemplate rewrites a prompt for a text-to-video model.
const RefineVideoTemplate = `
Enhance the *USER PROMPT* prompt to make it clear, effective, and suitable for generating a video using a text-to-video AI model.

# Steps

1. Carefully analyze the initial prompt provided.
2. Identify any parts that are unclear or incomplete for generating a video, such as visuals or animation.
3. Add specific guidelines to make the video output vivid and engaging, with context for each scene.
4. Include a clear sequence appropriate for video content.
5. Give direction on storytelling: scene changes, characters and visual effects.

# Example

**Initial Prompt (Input)**:
"Explain why a tomato is a fruit, and then list some related fruits."

**Enhanced Prompt (Output)**:
"Create a video that explains step-by-step why a tomato is scientifically classified as a fruit. The video should start by depicting a tomato plant, showing its flowers and subsequently its fruit. Add on-screen text explaining its botanical characteristics. Then smoothly transition to other similar fruits, like peppers and cucumbers, with labels for each."

Give me just the enhanced version of the prompt, no other text.

*USER PROMPT*
{question}
`

// SuggestionsTemplate asks for prompt ideas; {question} is the quantity.
const SuggestionsTemplate = "I want {question} suggestions for prompts ideas," +
	" half for video generation, half for text generation." +
	"\nGive me just a JSON output with the keys s1, s2, s3, etc, " +
	"and the values for each suggestion."
