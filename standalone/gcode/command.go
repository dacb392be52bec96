package gcode

// Command is a parsed G-code line
type Command struct {
	Type       byte             // 'G', 'M', 'T', or 0 for comment-only lines
	Number     int              // Command number (e.g. 1 for G1, 28 for G28)
	Parameters map[byte]float64 // Parameter words (X, Y, Z, A, ... F)
	Comment    string           // Comment text including its delimiter
}

// HasParameter checks if a parameter exists in the command
func (cmd *Command) HasParameter(param byte) bool {
	_, ok := cmd.Parameters[param]
	return ok
}

// GetParameter gets a parameter value, or returns the default if not present
func (cmd *Command) GetParameter(param byte, defaultValue float64) float64 {
	if val, ok := cmd.Parameters[param]; ok {
		return val
	}
	return defaultValue
}
