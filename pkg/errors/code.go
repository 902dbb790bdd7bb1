package errors

// Service codes (AA).
const (
	ServiceCommon   = 0
	ServiceGuidebot = 30
)

// Category codes (BB).
const (
	CategorySuccess    = 0
	CategoryRequest    = 1
	CategoryAuth       = 2
	CategoryPermission = 3
	CategoryResource   = 4
	CategoryConflict   = 5
	CategoryRateLimit  = 6
	CategoryInternal   = 7
	CategoryDatabase   = 8
	CategoryCache      = 9
	CategoryNetwork    = 10
	CategoryTimeout    = 11
	CategoryConfig     = 12
)

// MakeCode builds an AABBCCC error code.
func MakeCode(service, category, sequence int) int {
	return service*100000 + category*1000 + sequence
}

// ParseCode splits an AABBCCC error code into its parts.
func ParseCode(code int) (service, category, sequence int) {
	service = code / 100000
	category = (code / 1000) % 100
	sequence = code % 1000
	return service, category, sequence
}
