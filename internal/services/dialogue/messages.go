package dialogue

// User-facing texts that do not need a template
const (
	msgSomethingWrong   = "Sorry, something went wrong. Please try again in a moment."
	msgStateReset       = "Your previous conversation could not be resumed, so it was reset. Use /help to see available commands."
	msgIdleHint         = "I'm not sure what you mean. Use /help to see available commands."
	msgExpiredButton    = "This button has expired. Use /help to see available commands."
	msgUnknownCommand   = "Unknown command. Use /help to see available commands."
	msgRegisterFirst    = "Please complete your registration first."
	msgNotAdmin         = "This command is only available to operators."
	msgNothingToCancel  = "There is nothing to cancel."
	msgCancelled        = "Cancelled. Use /help to see available commands."
	msgTherapyEnded     = "Therapy session ended. Come back any time with /therapy."
	msgNoTrades         = "You haven't recorded any trades yet. Use /journal to log your first trade."
	msgChooseOption     = "Please choose one of the options below."
	msgSendTextInstead  = "Please reply with text."
	msgTherapyTextOnly  = "Please type your message so I can respond."
	msgDeletionCanceled = "Deletion cancelled."
	msgBroadcastAborted = "Broadcast cancelled."

	// registration
	msgAskFullName       = "What is your full name?"
	msgAskAge            = "How old are you?"
	msgInvalidName       = "Please enter your full name."
	msgInvalidAge        = "Please enter a valid number for your age (1-120)."
	msgAskTradingYears   = "How many years have you been trading? (Can be a decimal, e.g., 1.5)"
	msgInvalidYears      = "Please enter a valid number for years trading (e.g., 1.5)."
	msgAskExperience     = "What's your trading experience level?"
	msgAskAccountType    = "What type of trading account do you have?"
	msgAskPhase          = "What phase are you currently in?"
	msgAskProfitTarget   = "What is your profit target (in USD)?"
	msgInvalidTarget     = "Please enter a valid positive number for your profit target."
	msgAskInitialBalance = "What is your initial account balance (in USD)?"
	msgInvalidBalance    = "Please enter a valid positive number for your initial balance."

	// journaling
	msgAskDate = "Let's journal a new trade. First, what date did you take this trade? " +
		"Please use the format YYYY-MM-DD (e.g., 2025-04-29), or enter 'today' for today's date."
	msgInvalidDate      = "Invalid date format. Please use YYYY-MM-DD (e.g., 2025-04-29) or 'today'."
	msgFutureDate       = "The trade date cannot be in the future. Please enter a past date or 'today'."
	msgAskPair          = "What currency pair did you trade? (e.g., EURUSD, BTCUSD)"
	msgInvalidPair      = "Please enter the pair you traded (e.g., EURUSD)."
	msgAskStopLoss      = "What was your stop loss amount in USD?"
	msgInvalidStopLoss  = "Please enter a valid positive number for stop loss."
	msgAskTakeProfit    = "What was your take profit amount in USD?"
	msgInvalidTakeProf  = "Please enter a valid positive number for take profit."
	msgAskResult        = "What was the result of this trade?"
	msgAskBreakevenPnL  = "What was your exact profit/loss for this breakeven trade? " +
		"Please enter a positive number for a small profit or a negative number for a small loss. Example: 1.5 or -0.75"
	msgInvalidBreakeven = "Please enter a valid number for the breakeven amount (e.g., 1.5 or -0.75)."
	msgAskScreenshot    = "Would you like to add a screenshot of your trade? If yes, please send the image. If no, type 'skip'."
	msgInvalidShot      = "Please send a screenshot image or type 'skip' to continue without a screenshot."
	msgAskNotes         = "Please provide detailed notes about this trade (required).\n\n" +
		"Consider including: entry/exit reasoning, emotions during the trade, what went well, " +
		"what could be improved, and any patterns you noticed."
	msgNotesRequired = "⚠️ Notes are required for each trade. Please provide detailed observations or thoughts about this trade."

	// trade management
	msgAskViewID      = "Send the number of the trade you want to view (e.g., 12)."
	msgAskEditID      = "Send the number of the trade you want to edit (e.g., 12)."
	msgAskDeleteID    = "Send the number of the trade you want to delete (e.g., 12)."
	msgInvalidTradeID = "Please send a trade number, e.g. 12."
	msgAskEditField   = "Which field do you want to change?"
	msgAskNewNotes    = "Send the new notes for this trade."

	// broadcast
	msgAskBroadcast = "Send the message you want to broadcast to all registered users, or type 'cancel' to abort."
	msgEmptyMessage = "The broadcast message cannot be empty. Send the text, or type 'cancel' to abort."

	// therapy
	msgTherapyWelcome = "Welcome to your trading psychology session. How are you feeling about your trading today? " +
		"Feel free to share any thoughts, concerns, or emotions. Use /cancel when you want to stop."
)
