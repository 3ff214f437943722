package bot

const introText = "Hi! I relay this conversation to an AI model. " +
	"Just write to me and I will answer. Send /help to see what else I can do."

const helpText = `Available commands:
/help - show this message
/intro - introduce the bot
/image [n=<count>] [<width>x<height>] <prompt> - generate images
/again - repeat the last image command, or retry the last answer
/instruct [<text>] - set or clear instructions for this conversation
/history [clear] - show or clear the conversation history
Anything else is sent to the model as conversation.`

const adminHelpText = `Admin commands (direct conversation only):
/init [<text>] - set or clear the global initialization message
/show [<property>...] - show configuration properties
/set <property> [<value>] - set or delete a configuration property`
