package taskname

const (
	// Ledger tasks
	LedgerVerifyChain    = "ledger:verify_chain"
	LedgerVerifyAllChain = "ledger:verify_all_chains"
)
