package ganglion

import "strconv"

// decoder holds the per-connection state the compressed-notification
// protocol needs across packets: the last four decompressed EEG samples
// (so the next delta-compressed packet can be reconstructed relative to
// them) and the most recent accelerometer and impedance readings, which
// only arrive a few bits at a time and must persist between packets.
type decoder struct {
	lastData               [8]float64
	accelX, accelY, accelZ float64

	resistFirst, resistSecond, resistThird, resistFourth, resistRef float64

	eegScale   float64
	accelScale float64
}

// newDecoder constructs a decoder with the device's amplifier scale
// factors. gain is the PGA gain applied by the ADC front end.
func newDecoder(gain float64) *decoder {
	const (
		vrefMicrovolts = 1_200_000.0 // 1.2V reference, expressed in microvolts
		adcFullScale   = 8_388_607.0 // 2^23 - 1
	)
	return &decoder{
		eegScale:   vrefMicrovolts / adcFullScale / gain,
		accelScale: 0.016,
	}
}

// frameKind classifies the first byte of a 20-byte BLE notification.
type frameKind int

const (
	frameUncompressed frameKind = iota
	frameCompressed18
	frameCompressed19
	frameImpedance
	frameUnknown
)

func classifyFrame(b0 byte, size int) frameKind {
	switch {
	case b0 == 0 && size == 20:
		return frameUncompressed
	case b0 >= 1 && b0 <= 100 && size == 20:
		return frameCompressed18
	case b0 >= 101 && b0 <= 200 && size == 20:
		return frameCompressed19
	case b0 > 200 && b0 < 206:
		return frameImpedance
	default:
		return frameUnknown
	}
}

// decodeUncompressed handles the data[0]==0 initialization packet: four raw
// 24-bit EEG samples with no delta compression, used to seed lastData.
func (d *decoder) decodeUncompressed(data []byte) [4]float64 {
	d.lastData[0], d.lastData[1], d.lastData[2], d.lastData[3] = d.lastData[4], d.lastData[5], d.lastData[6], d.lastData[7]
	d.lastData[4] = float64(cast24(data[1:4]))
	d.lastData[5] = float64(cast24(data[4:7]))
	d.lastData[6] = float64(cast24(data[7:10]))
	d.lastData[7] = float64(cast24(data[10:13]))

	return [4]float64{
		d.eegScale * d.lastData[4],
		d.eegScale * d.lastData[5],
		d.eegScale * d.lastData[6],
		d.eegScale * d.lastData[7],
	}
}

// applyAccelByte updates whichever accelerometer axis the low digit of
// data[0] selects. Firmware swaps x and z and inverts z.
func (d *decoder) applyAccelByte(b0 byte, accelByte byte) {
	switch b0 % 10 {
	case 0:
		d.accelZ = -d.accelScale * float64(int8(accelByte))
	case 1:
		d.accelY = d.accelScale * float64(int8(accelByte))
	case 2:
		d.accelX = d.accelScale * float64(int8(accelByte))
	}
}

// decodeCompressed reconstructs two EEG sample rows from one 18-or-19-bit
// delta-compressed packet, returning them oldest-first.
func (d *decoder) decodeCompressed(data []byte, bitsPerNum int) (first, second [4]float64) {
	var delta [8]float64
	for counter := 0; counter < 8; counter++ {
		bitOffset := 8 + counter*bitsPerNum
		delta[counter] = float64(signExtend(readBits(data, bitOffset, bitsPerNum), bitsPerNum))
	}

	for i := 0; i < 4; i++ {
		d.lastData[i] = d.lastData[i+4] - delta[i]
	}
	for i := 4; i < 8; i++ {
		d.lastData[i] = d.lastData[i-4] - delta[i]
	}

	first = [4]float64{
		d.eegScale * d.lastData[0], d.eegScale * d.lastData[1],
		d.eegScale * d.lastData[2], d.eegScale * d.lastData[3],
	}
	second = [4]float64{
		d.eegScale * d.lastData[4], d.eegScale * d.lastData[5],
		d.eegScale * d.lastData[6], d.eegScale * d.lastData[7],
	}
	return first, second
}

func (d *decoder) accel() [3]float64 {
	return [3]float64{d.accelX, d.accelY, d.accelZ}
}

// decodeImpedance parses one ascii impedance packet ("<value>Z") and
// returns the updated five-channel resistance reading.
func (d *decoder) decodeImpedance(b0 byte, ascii string) ([5]float64, error) {
	val, err := strconv.Atoi(ascii)
	if err != nil {
		return [5]float64{}, err
	}
	switch b0 % 10 {
	case 1:
		d.resistFirst = float64(val)
	case 2:
		d.resistSecond = float64(val)
	case 3:
		d.resistThird = float64(val)
	case 4:
		d.resistFourth = float64(val)
	case 5:
		d.resistRef = float64(val)
	}
	return [5]float64{d.resistFirst, d.resistSecond, d.resistThird, d.resistFourth, d.resistRef}, nil
}

// readBits extracts an unsigned width-bit value starting at bitOffset,
// numbering bits MSB-first from data[0].
func readBits(data []byte, bitOffset, width int) uint32 {
	var v uint32
	for i := 0; i < width; i++ {
		bit := bitOffset + i
		byteIdx := bit / 8
		bitInByte := 7 - (bit % 8)
		b := (data[byteIdx] >> bitInByte) & 1
		v = v<<1 | uint32(b)
	}
	return v
}

// signExtend interprets a width-bit unsigned value as two's complement.
func signExtend(v uint32, width int) int32 {
	if v&(1<<(width-1)) != 0 {
		return int32(v) - (1 << width)
	}
	return int32(v)
}

func cast24(b []byte) int32 {
	v := int32(b[0])<<16 | int32(b[1])<<8 | int32(b[2])
	if v&0x800000 != 0 {
		v -= 1 << 24
	}
	return v
}
