// Package ds18b20therm reads DS18B20 thermometers through the kernel w1
// sysfs interface.
//
// Each device shows up as a directory under ThermometerDevicesRootPath. Its
// w1_slave file holds two lines written by the w1_therm driver, e.g.
//
//	60 01 4b 46 7f ff 0c 10 14 : crc=14 YES
//	60 01 4b 46 7f ff 0c 10 14 t=22000
//
// The first line ends with the driver's CRC verdict, the second with the
// temperature in milli-degrees Celsius.
package ds18b20therm

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ThermometerDevicesRootPath where to look for DS18B20 devices
const ThermometerDevicesRootPath = "/sys/bus/w1/devices"

// FamilyPrefix is the w1 family code of the DS18B20 product line.
const FamilyPrefix = "28-"

const slaveFile = "w1_slave"

var log = logrus.WithField("package", "ds18b20therm")

// readDirEntries lists an opened registry directory.
var readDirEntries = (*os.File).ReadDir

// DS18B20Reader reads thermometers below a w1 devices directory.
type DS18B20Reader struct {
	root string
}

// NewDS18B20Reader returns a reader rooted at root, or at
// ThermometerDevicesRootPath when root is empty.
func NewDS18B20Reader(root string) *DS18B20Reader {
	if root == "" {
		root = ThermometerDevicesRootPath
	}
	return &DS18B20Reader{root: root}
}

// Root returns the devices directory the reader scans.
func (t *DS18B20Reader) Root() string {
	return t.root
}

// EnumerateThermometers uses the default devices directory.
func EnumerateThermometers() ([]string, error) {
	return NewDS18B20Reader("").EnumerateThermometers()
}

// ReadTemperature uses the default devices directory.
func ReadTemperature(deviceID string) (float64, error) {
	return NewDS18B20Reader("").ReadTemperature(deviceID)
}

// EnumerateThermometers lists the device ids carrying the DS18B20 family
// prefix. Ids come back in directory order; no sorting is applied. Any
// failure listing the directory aborts the whole scan.
func (t *DS18B20Reader) EnumerateThermometers() ([]string, error) {
	dir, err := os.Open(t.root)
	if err != nil {
		return nil, &AccessError{Msg: fmt.Sprintf("reading directory %q", t.root), Err: err}
	}
	defer dir.Close()

	entries, err := readDirEntries(dir, -1)
	if err != nil {
		// opening a regular file succeeds; listing it is what fails
		if errors.Is(err, syscall.ENOTDIR) {
			return nil, &AccessError{Msg: fmt.Sprintf("reading directory %q", t.root), Err: err}
		}
		return nil, &AccessError{Msg: fmt.Sprintf("reading directory entry under %q", t.root), Err: err}
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	ids := filterThermometers(names)
	log.Debugf("found %d thermometer(s) among %d entries of %s", len(ids), len(names), t.root)
	return ids, nil
}

func filterThermometers(names []string) []string {
	var ids []string
	for _, name := range names {
		if strings.HasPrefix(name, FamilyPrefix) {
			ids = append(ids, name)
		}
	}
	return ids
}

// Path returns the w1_slave file of a device.
func (t *DS18B20Reader) Path(deviceID string) string {
	return filepath.Join(t.root, deviceID, slaveFile)
}

// ReadTemperature returns the current temperature of a device in degrees
// Celsius. The kernel performs a fresh conversion on every open, which takes
// up to 750ms.
func (t *DS18B20Reader) ReadTemperature(deviceID string) (float64, error) {
	path := t.Path(deviceID)
	f, err := os.Open(path)
	if err != nil {
		return 0, &AccessError{Msg: fmt.Sprintf("opening sensor data file %q", path), Err: err}
	}
	defer f.Close()

	temperature, err := ParseTemperature(f, path)
	if err != nil {
		log.WithError(err).Debugf("could not read temperature from file: %s", path)
		return 0, err
	}
	return temperature, nil
}

// ParseTemperature decodes the two-line w1_slave record read from r. path is
// only used in error messages.
func ParseTemperature(r io.Reader, path string) (float64, error) {
	br := bufio.NewReader(r)

	crcLine, err := nextLine(br, path, "missing CRC line")
	if err != nil {
		return 0, err
	}
	crcFields := strings.SplitN(crcLine, " ", 12)
	if len(crcFields) < 12 {
		return 0, &InvalidDataError{Msg: "CRC line", Data: crcLine}
	}
	if crcFields[11] != "YES" {
		return 0, ErrBadCRC
	}

	tempLine, err := nextLine(br, path, "missing data line")
	if err != nil {
		return 0, err
	}
	tempFields := strings.SplitN(tempLine, " ", 10)
	if len(tempFields) < 10 {
		return 0, &InvalidDataError{Msg: "wrong number of fields in temperature line", Data: tempLine}
	}
	kv := strings.SplitN(tempFields[9], "=", 2)
	if len(kv) < 2 {
		return 0, &InvalidDataError{Msg: "no '=' in temperature line", Data: tempLine}
	}
	milliDegC, err := strconv.ParseInt(kv[1], 10, 64)
	if err != nil {
		return 0, &InvalidDataError{
			Msg:  fmt.Sprintf("unable to parse temperature as integer: %s", err),
			Data: tempLine,
		}
	}

	return float64(milliDegC) / 1000.0, nil
}

// nextLine returns the next line without its line ending. Lines have no
// length limit. A short file is invalid data, a failing read is an access error.
func nextLine(br *bufio.Reader, path string, missing string) (string, error) {
	line, err := br.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", &AccessError{Msg: fmt.Sprintf("read error on %q", path), Err: err}
	}
	if err == io.EOF && line == "" {
		return "", &InvalidDataError{Msg: missing}
	}
	line = strings.TrimSuffix(line, "\n")
	return strings.TrimSuffix(line, "\r"), nil
}
