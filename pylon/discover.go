package pylon

import (
	"fmt"

	"github.com/google/gousb"
)

const (
	// BaslerVID is the Basler AG USB vendor ID
	BaslerVID = 0x2676
)

// DeviceInfo describes one attached camera found during discovery
type DeviceInfo struct {
	// Bus and Address locate the device on the USB tree
	Bus     int
	Address int

	// Product is the product string reported by the device
	Product string

	// Serial is the device serial number
	Serial string
}

func (d DeviceInfo) String() string {
	return fmt.Sprintf("%s SN%s (bus %d addr %d)", d.Product, d.Serial, d.Bus, d.Address)
}

// Discover enumerates attached USB3 Vision cameras by the Basler vendor
// ID.  Cameras opened elsewhere may be skipped by the OS; this is an
// advisory listing, not a claim.
func Discover() ([]DeviceInfo, error) {
	ctx := gousb.NewContext()
	defer ctx.Close()
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == gousb.ID(BaslerVID)
	})
	// OpenDevices may return both devices and an error if one device
	// could not be opened; report whatever was found
	infos := make([]DeviceInfo, 0, len(devs))
	for _, d := range devs {
		info := DeviceInfo{Bus: d.Desc.Bus, Address: d.Desc.Address}
		if s, serr := d.Product(); serr == nil {
			info.Product = s
		}
		if s, serr := d.SerialNumber(); serr == nil {
			info.Serial = s
		}
		infos = append(infos, info)
		d.Close()
	}
	return infos, err
}
