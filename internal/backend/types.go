package backend

// LoadConfig bounds how much of a value the backend returns in one
// variable-reading RPC, per spec.md §3 "Load Config". It is sent with
// every variable-reading RPC in the v2 dialect.
type LoadConfig struct {
	FollowPointers     bool `json:"FollowPointers"`
	MaxVariableRecurse int  `json:"MaxVariableRecurse"`
	MaxStringLen       int  `json:"MaxStringLen"`
	MaxArrayValues     int  `json:"MaxArrayValues"`
	MaxStructFields    int  `json:"MaxStructFields"`
}

// DefaultLoadConfig matches spec.md §3's stated defaults.
func DefaultLoadConfig() LoadConfig {
	return LoadConfig{
		FollowPointers:     false,
		MaxVariableRecurse: 1,
		MaxStringLen:       64,
		MaxArrayValues:     64,
		MaxStructFields:    -1,
	}
}

// Location names a source position the backend reports (breakpoint hit,
// goroutine frame, etc).
type Location struct {
	PC       uint64 `json:"pc"`
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function,omitempty"`
}

// Goroutine mirrors spec.md §3's Goroutine record.
type Goroutine struct {
	ID                  int      `json:"id"`
	CurrentLoc          Location `json:"currentLoc"`
	UserCurrentLoc      Location `json:"userCurrentLoc"`
	GoStatementLoc      Location `json:"goStatementLoc"`
}

// Stackframe is one entry of a Stacktrace result.
type Stackframe struct {
	Location  Location   `json:"location"`
	Locals    []Variable `json:"Locals,omitempty"`
	Arguments []Variable `json:"Arguments,omitempty"`
}

// Variable mirrors spec.md §3's Debug Variable, using the backend's JSON
// field names verbatim (matching Delve's actual wire shape) so the
// renderer can decode responses without a translation layer.
type Variable struct {
	Name         string     `json:"name"`
	Addr         uint64     `json:"addr"`
	OnlyAddr     bool       `json:"onlyAddr"`
	Type         string     `json:"type"`
	RealType     string     `json:"realType"`
	Kind         VarKind    `json:"kind"`
	Flags        VarFlags   `json:"flags"`
	DeclLine     int64      `json:"DeclLine"`
	Value        string     `json:"value"`
	Len          int64      `json:"len"`
	Cap          int64      `json:"cap"`
	Children     []Variable `json:"children,omitempty"`
	Unreadable   string     `json:"unreadable,omitempty"`
	Base         uint64     `json:"base"`

	// FullyQualifiedName is derived by the renderer, not sent by the
	// backend; see spec.md §4.7.
	FullyQualifiedName string `json:"-"`
}

// VarKind mirrors Go's reflect.Kind values as reported by the backend.
type VarKind uint

const (
	KindInvalid VarKind = iota
	KindBool
	KindInt
	_ // reflect.Int8
	_ // reflect.Int16
	_ // reflect.Int32
	_ // reflect.Int64
	KindUint
	_ // reflect.Uint8
	_ // reflect.Uint16
	_ // reflect.Uint32
	_ // reflect.Uint64
	_ // reflect.Uintptr
	KindFloat // reflect.Float32
	_         // reflect.Float64
	KindComplex // reflect.Complex64
	_           // reflect.Complex128
	KindArray
	KindChan
	KindFunc
	KindInterface
	KindMap
	KindPtr
	KindSlice
	KindString
	KindStruct
	KindUnsafePointer
)

// VarFlags mirrors the backend's per-variable bit flags.
type VarFlags uint16

const (
	FlagNone           VarFlags = 0
	FlagEscaped        VarFlags = 1 << (iota - 1)
	FlagShadowed
	FlagConstant
	FlagArgument
	FlagReturnArgument
)

func (f VarFlags) Has(flag VarFlags) bool { return f&flag != 0 }

// Breakpoint is a backend-issued breakpoint record.
type Breakpoint struct {
	ID         int    `json:"id"`
	File       string `json:"file"`
	Line       int    `json:"line"`
	Cond       string `json:"cond,omitempty"`
	LoadArgs   *LoadConfig `json:"loadArgs,omitempty"`
	LoadLocals *LoadConfig `json:"loadLocals,omitempty"`
}

// DebuggerState is the backend's overall run-state snapshot.
type DebuggerState struct {
	Running           bool       `json:"Running"`
	Exited            bool       `json:"exited"`
	ExitStatus        int        `json:"exitStatus"`
	CurrentThread     *Location  `json:"currentThread,omitempty"`
	CurrentGoroutine  *Goroutine `json:"currentGoroutine,omitempty"`
	NextInProgress    bool       `json:"NextInProgress"`
	Err               string     `json:"Err,omitempty"`
}
