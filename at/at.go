package at

const (
	// Terminal Control
	CR         = "\r"
	Terminator = '\r'

	// Commands
	CmdSendMessage    = "AT$SF="  // Prefix of an uplink message, followed by hex payload
	CmdGetID          = "AT$I=10" // Device ID
	CmdGetPAC         = "AT$I=11" // Porting Authorization Code, used for registration
	CmdGetTemperature = "AT$T?"   // Module temperature in tenths of a degree
	CmdGetVoltage     = "AT$V?"   // Supply voltage in millivolts
	CmdSleep          = "AT$P=1"
	CmdWakeup         = "AT$P=0"

	// Response Codes
	OK    = "OK"
	ERROR = "ERROR"
)

type ResponseType int

const (
	TypeFinal ResponseType = iota // OK, ERROR
	TypeData                      // Query output (ID, PAC, readings)
)
