package main

// tourMessages is the static educational walkthrough served by GET /tour.
var tourMessages = []string{
	"Welcome! I'm a chatbot that answers questions about Bitcoin.",
	"Bitcoin is a decentralized digital currency launched in 2009 by the pseudonymous Satoshi Nakamoto.",
	"Transactions are recorded on a public ledger called the blockchain, secured by proof-of-work mining.",
	"The supply is capped at 21 million coins, and the block reward halves roughly every four years.",
	"Ask me about wallets, mining, the Lightning Network, or the current price — I keep a short-lived market snapshot handy.",
	"I don't give financial advice or price predictions. Try asking: \"What is a halving?\"",
}
