package audio

// MuLawSilence is the G.711 mu-law byte for a zero-amplitude sample
const MuLawSilence byte = 0xFF

const (
	muLawBias = 0x84
	muLawClip = 32635
)

// DecodeMuLaw converts G.711 mu-law (8-bit, 8kHz) to 16-bit signed
// little-endian PCM
func DecodeMuLaw(muLaw []byte) []byte {
	if len(muLaw) == 0 {
		return nil
	}

	result := make([]byte, len(muLaw)*2)
	for i, mu := range muLaw {
		// mu-law stores samples bit-inverted
		mu = ^mu

		sign := mu & 0x80
		exponent := (mu >> 4) & 0x07
		mantissa := mu & 0x0F

		magnitude := ((int(mantissa) << 3) + muLawBias) << exponent
		magnitude -= muLawBias

		sample := int16(magnitude)
		if sign != 0 {
			sample = -sample
		}

		result[i*2] = byte(sample & 0xFF)
		result[i*2+1] = byte((sample >> 8) & 0xFF)
	}

	return result
}

// EncodeMuLaw converts 16-bit signed little-endian PCM to G.711 mu-law
func EncodeMuLaw(pcm []byte) []byte {
	if len(pcm) < 2 {
		return nil
	}

	out := make([]byte, len(pcm)/2)
	for i := range out {
		sample := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = encodeMuLawSample(sample)
	}
	return out
}

func encodeMuLawSample(sample int16) byte {
	var sign byte
	s := int(sample)
	if s < 0 {
		s = -s
		sign = 0x80
	}
	if s > muLawClip {
		s = muLawClip
	}
	s += muLawBias

	exponent := 7
	for mask := 0x4000; exponent > 0 && s&mask == 0; mask >>= 1 {
		exponent--
	}
	mantissa := (s >> (exponent + 3)) & 0x0F

	return ^(sign | byte(exponent<<4) | byte(mantissa))
}
