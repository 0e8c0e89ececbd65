package sqlitebridge

// Destroyer is implemented by callbacks that want to be told when the
// bridge permanently releases them. The bridge calls Destroy exactly once
// per release: when a registration is replaced or removed where the
// engine contract promises a destructor, and when a connection's
// registered callbacks are torn down after close.
//
// Destroy must not call back into the bridge.
type Destroyer interface {
	Destroy()
}

// TextEncoding selects the text representation a SQL function or
// collation is registered for.
type TextEncoding int32

const (
	UTF8          TextEncoding = 1
	UTF16LE       TextEncoding = 2
	UTF16BE       TextEncoding = 3
	UTF16         TextEncoding = 4
	UTF16Aligned  TextEncoding = 8
	Deterministic TextEncoding = 0x000000800
	DirectOnly    TextEncoding = 0x000080000
	Innocuous     TextEncoding = 0x000200000
)
