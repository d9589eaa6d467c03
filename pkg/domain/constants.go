package domain

const (
	// ControlLoad is the pseudo-control that fires the prepare step when the wizard opens.
	ControlLoad = "load"

	// FieldCSV is the form field carrying the roster.
	FieldCSV = "csv"

	PlaceholderDefault = "Processing..."
	PlaceholderSlow    = "Processing, this can take 30 seconds or more..."

	// DefaultExplorerURL is the block explorer template used to verify issued transactions.
	DefaultExplorerURL = "https://live.blockcypher.com/btc-testnet/tx/%s"
)
