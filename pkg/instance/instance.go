package instance

import "os"

// GetID returns the device instance identifier or a default value.
func GetID() string {
	if id := os.Getenv("PFFIELD_DEVICE_ID"); id != "" {
		return id
	}
	return "device-0"
}
