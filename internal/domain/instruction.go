package domain

// InstructionKind is the kind of fund movement requested from custody.
type InstructionKind string

const (
	// InstructionEscrow moves Amount of From's available balance into held.
	InstructionEscrow InstructionKind = "escrow"
	// InstructionRelease moves Amount of From's held balance back to available.
	InstructionRelease InstructionKind = "release"
	// InstructionSettle moves Amount from From's held balance to To's
	// available balance.
	InstructionSettle InstructionKind = "settle"
)

// Instruction is a single settlement step emitted by the matching engine.
type Instruction struct {
	Kind   InstructionKind
	From   AccountID
	To     AccountID
	Amount Amount
}

// Escrow builds an escrow instruction.
func Escrow(owner AccountID, a Amount) Instruction {
	return Instruction{Kind: InstructionEscrow, From: owner, Amount: a}
}

// Release builds a release instruction.
func Release(owner AccountID, a Amount) Instruction {
	return Instruction{Kind: InstructionRelease, From: owner, Amount: a}
}

// Settle builds a settle instruction.
func Settle(from, to AccountID, a Amount) Instruction {
	return Instruction{Kind: InstructionSettle, From: from, To: to, Amount: a}
}
