package mempool

// On-chain program IDs the monitor subscribes to and classifies against.
const (
	ProgramRaydiumV4     = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	ProgramRaydiumCLMM   = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	ProgramOrcaWhirlpool = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
	ProgramSerum         = "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin"
	ProgramJupiterV6     = "JUP6LkbZbjS1jKKwapdHNy74zcZ3tLUZoi5QNyVTaV4"
	ProgramToken         = "TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA"
	ProgramSystem        = "11111111111111111111111111111111"
	ProgramComputeBudget = "ComputeBudget111111111111111111111111111111"
)

// MonitoredPrograms is the subscription set, in subscription order.
var MonitoredPrograms = []string{
	ProgramRaydiumV4,
	ProgramRaydiumCLMM,
	ProgramOrcaWhirlpool,
	ProgramSerum,
	ProgramJupiterV6,
	ProgramToken,
}

// whirlpoolInitDiscriminator prefixes Orca initializePool instruction data.
var whirlpoolInitDiscriminator = []byte{0x95, 0xbb, 0x81, 0xfa, 0xaf, 0x23, 0xba, 0x59}
