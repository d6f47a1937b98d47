package module

// FrameworkAddress is the platform's reserved address for its standard
// framework modules. The id-leak allowlist requires a call's target module
// to live at this address before treating object::delete as safe to
// consume an ID by value.
var FrameworkAddress = Address{
	0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 2,
}

// Reserved identifiers for the two allowlisted framework entry points.
const (
	ObjectModuleName   = "object"
	TransferModuleName = "transfer"

	DeleteFunctionName             = "delete"
	DeleteChildObjectFunctionName  = "delete_child_object"
)
