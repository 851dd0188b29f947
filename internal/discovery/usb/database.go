// internal/discovery/usb/database.go
package usb

import "github.com/google/gousb"

// DeviceDatabase contains known USB receipt printer vendors and models
type DeviceDatabase struct {
	vendors map[gousb.ID]*VendorInfo
}

// VendorInfo contains vendor-specific information
type VendorInfo struct {
	Name     string
	products map[gousb.ID]string
}

// NewDeviceDatabase creates and initializes the device database
func NewDeviceDatabase() *DeviceDatabase {
	db := &DeviceDatabase{vendors: make(map[gousb.ID]*VendorInfo)}

	db.AddVendor(0x04B8, "Epson", map[gousb.ID]string{
		0x0202: "TM-T88IV",
		0x0203: "TM-T88V",
		0x0214: "TM-T20",
		0x0215: "TM-T20II",
		0x0216: "TM-m30",
		0x0217: "TM-T88VI",
	})
	db.AddVendor(0x0519, "Star Micronics", map[gousb.ID]string{
		0x0001: "TSP100",
		0x0002: "TSP650",
		0x0003: "mC-Print3",
	})
	db.AddVendor(0x1CBE, "Citizen", map[gousb.ID]string{
		0x0001: "CT-S310II",
		0x0002: "CT-S4000",
	})
	db.AddVendor(0x1504, "Bixolon", map[gousb.ID]string{
		0x0006: "SRP-350III",
		0x0007: "SRP-275III",
	})
	db.AddVendor(0x0416, "Winbond (generic POS-80)", map[gousb.ID]string{
		0x5011: "POS-80",
	})

	return db
}

// AddVendor adds or replaces a vendor
func (db *DeviceDatabase) AddVendor(vendorID gousb.ID, name string, products map[gousb.ID]string) {
	if products == nil {
		products = make(map[gousb.ID]string)
	}
	db.vendors[vendorID] = &VendorInfo{Name: name, products: products}
}

// IsKnownVendor checks if a vendor ID is in the database
func (db *DeviceDatabase) IsKnownVendor(vendorID gousb.ID) bool {
	_, ok := db.vendors[vendorID]
	return ok
}

// Lookup returns the vendor name and model for a device. model is empty
// for an unknown product of a known vendor.
func (db *DeviceDatabase) Lookup(vendorID, productID gousb.ID) (vendor, model string, ok bool) {
	v, ok := db.vendors[vendorID]
	if !ok {
		return "", "", false
	}
	return v.Name, v.products[productID], true
}
