package db

const (
	TX_KIND_ECASH_SENT         = "ecash_sent"
	TX_KIND_ECASH_RECEIVED     = "ecash_received"
	TX_KIND_LIGHTNING_SENT     = "lightning_sent"
	TX_KIND_LIGHTNING_RECEIVED = "lightning_received"
	TX_KIND_NUTZAP_SENT        = "nutzap_sent"
	TX_KIND_NUTZAP_RECEIVED    = "nutzap_received"

	MINT_QUOTE_STATE_UNPAID = "unpaid"
	MINT_QUOTE_STATE_PAID   = "paid"
	MINT_QUOTE_STATE_ISSUED = "issued"
)
