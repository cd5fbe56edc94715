// internal/model/device.go
package model

// DeviceDescriptor identifies one enumerated serial-capable device
type DeviceDescriptor struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	VendorID     string `json:"vendor_id,omitempty"`
	ProductID    string `json:"product_id,omitempty"`
	SerialNumber string `json:"serial_number,omitempty"`
	IsUSB        bool   `json:"is_usb"`
}

// LinkStatus represents the state of the bridge link
type LinkStatus string

const (
	LinkStatusConnecting LinkStatus = "CONNECTING"
	LinkStatusReady      LinkStatus = "READY"
	LinkStatusOffline    LinkStatus = "OFFLINE"
)

// UARTBridge describes a USB-to-UART bridge attached to the host
type UARTBridge struct {
	VendorID     string `json:"vendor_id"`
	ProductID    string `json:"product_id"`
	Vendor       string `json:"vendor"`
	Product      string `json:"product"`
	SerialNumber string `json:"serial_number,omitempty"`
	Location     string `json:"location"`
}
