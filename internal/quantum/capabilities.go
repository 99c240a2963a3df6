package quantum

// Evolver advances continuous dynamics.
type Evolver interface {
	Evolve(dt float64) EvolveResult
	Occupied() int
}

// Drivable accepts dissipative pumping and relaxation.
type Drivable interface {
	ApplyDrive(label string, rate, dt float64) DissipationResult
	ApplyDecay(qubit int, rate, dt float64) DissipationResult
}

// Measurable supports projective readout.
type Measurable interface {
	MeasureAxis(north, south string) MeasureResult
	Population(label string) (float64, bool)
}

// Gateable accepts unitary mutation.
type Gateable interface {
	ApplyGate(qubit int, u *Matrix) GateResult
	ApplyGate2Q(a, b int, u *Matrix) GateResult
}

// Snapshotter exports read-only state.
type Snapshotter interface {
	ExportBlochPacket() BlochPacket
	Purity() float64
}

var (
	_ Evolver     = (*Register)(nil)
	_ Drivable    = (*Register)(nil)
	_ Measurable  = (*Register)(nil)
	_ Gateable    = (*Register)(nil)
	_ Snapshotter = (*Register)(nil)
)
