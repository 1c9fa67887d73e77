package probe

// IfStatus is the IF-MIB ifOperStatus / ifAdminStatus enumeration.
type IfStatus int

const (
	IfUp             IfStatus = 1
	IfDown           IfStatus = 2
	IfTesting        IfStatus = 3
	IfUnknown        IfStatus = 4
	IfDormant        IfStatus = 5
	IfNotPresent     IfStatus = 6
	IfLowerLayerDown IfStatus = 7
)

var ifStatusNames = map[IfStatus]string{
	IfUp:             "up",
	IfDown:           "down",
	IfTesting:        "testing",
	IfUnknown:        "unknown",
	IfDormant:        "dormant",
	IfNotPresent:     "notPresent",
	IfLowerLayerDown: "lowerLayerDown",
}

// String returns the IF-MIB label; codes outside the table are "unknown".
func (s IfStatus) String() string {
	if name, ok := ifStatusNames[s]; ok {
		return name
	}
	return "unknown"
}
