// internal/discovery/usb/database.go - USB-UART bridge database
package usb

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/gousb"
)

// BridgeDatabase contains known USB-to-UART bridge chips
type BridgeDatabase struct {
	vendors map[gousb.ID]*VendorInfo
}

// VendorInfo contains vendor-specific information
type VendorInfo struct {
	Name     string
	products map[gousb.ID]*ProductInfo
}

// ProductInfo describes one bridge product
type ProductInfo struct {
	// Name is the USB product string the chip reports by default
	Name string
	Chip string
}

// NewBridgeDatabase creates and initializes the bridge database
func NewBridgeDatabase() *BridgeDatabase {
	db := &BridgeDatabase{
		vendors: make(map[gousb.ID]*VendorInfo),
	}
	db.initializeDatabase()
	return db
}

// initializeDatabase populates the known bridges
func (db *BridgeDatabase) initializeDatabase() {
	// Silicon Labs (0x10C4)
	db.AddVendor(0x10C4, &VendorInfo{Name: "Silicon Labs"})
	db.AddProduct(0x10C4, 0xEA60, &ProductInfo{Name: "CP2102 USB to UART Bridge Controller", Chip: "CP210x"})
	db.AddProduct(0x10C4, 0xEA70, &ProductInfo{Name: "CP2105 Dual USB to UART Bridge Controller", Chip: "CP2105"})
	db.AddProduct(0x10C4, 0xEA71, &ProductInfo{Name: "CP2108 Quad USB to UART Bridge Controller", Chip: "CP2108"})

	// FTDI (0x0403)
	db.AddVendor(0x0403, &VendorInfo{Name: "FTDI"})
	db.AddProduct(0x0403, 0x6001, &ProductInfo{Name: "FT232R USB UART", Chip: "FT232R"})
	db.AddProduct(0x0403, 0x6015, &ProductInfo{Name: "FT230X Basic UART", Chip: "FT-X"})

	// WCH (0x1A86)
	db.AddVendor(0x1A86, &VendorInfo{Name: "QinHeng Electronics"})
	db.AddProduct(0x1A86, 0x7523, &ProductInfo{Name: "USB Serial", Chip: "CH340"})
	db.AddProduct(0x1A86, 0x55D4, &ProductInfo{Name: "USB Single Serial", Chip: "CH9102"})

	// Prolific (0x067B)
	db.AddVendor(0x067B, &VendorInfo{Name: "Prolific Technology"})
	db.AddProduct(0x067B, 0x2303, &ProductInfo{Name: "USB-Serial Controller", Chip: "PL2303"})
}

// IsKnownVendor checks if a vendor ID is in the database
func (db *BridgeDatabase) IsKnownVendor(vendorID gousb.ID) bool {
	_, exists := db.vendors[vendorID]
	return exists
}

// GetVendorInfo retrieves vendor information
func (db *BridgeDatabase) GetVendorInfo(vendorID gousb.ID) *VendorInfo {
	return db.vendors[vendorID]
}

// GetProductInfo retrieves product information from vendor
func (vi *VendorInfo) GetProductInfo(productID gousb.ID) *ProductInfo {
	return vi.products[productID]
}

// Lookup resolves a product by the textual VID/PID pair an OS enumerator reports
func (db *BridgeDatabase) Lookup(vid, pid string) (*VendorInfo, *ProductInfo, bool) {
	vendorID, err := ParseID(vid)
	if err != nil {
		return nil, nil, false
	}
	productID, err := ParseID(pid)
	if err != nil {
		return nil, nil, false
	}

	vendor := db.GetVendorInfo(vendorID)
	if vendor == nil {
		return nil, nil, false
	}
	product := vendor.GetProductInfo(productID)
	if product == nil {
		return vendor, nil, false
	}
	return vendor, product, true
}

// AddVendor adds a new vendor to the database
func (db *BridgeDatabase) AddVendor(vendorID gousb.ID, info *VendorInfo) {
	if info.products == nil {
		info.products = make(map[gousb.ID]*ProductInfo)
	}
	db.vendors[vendorID] = info
}

// AddProduct adds a new product to an existing vendor
func (db *BridgeDatabase) AddProduct(vendorID, productID gousb.ID, info *ProductInfo) {
	if vendor, exists := db.vendors[vendorID]; exists {
		vendor.products[productID] = info
	}
}

// ParseID parses a hexadecimal USB id such as "10C4" or "0x10c4"
func ParseID(value string) (gousb.ID, error) {
	value = strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(value), "0x"), "0X")
	id, err := strconv.ParseUint(value, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid USB id %q: %w", value, err)
	}
	return gousb.ID(id), nil
}
