package main

import (
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/corona10/goimagehash"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

func DecodeImage(r io.Reader) image.Image {
	decodedImg, format, err := image.Decode(r)
	if err != nil {
		log.Debug("Failed to decode image: ", err.Error())
		return nil
	}
	log.Trace("Decoded image of format ", format)
	return decodedImg
}

func GeneratePHash(image image.Image) uint64 {
	log.Trace("Generating PHash for image with size ", image.Bounds().Size())
	hash, err := goimagehash.PerceptionHash(image)

	if err != nil {
		log.Error("Failed to generate pHash:", err.Error())
		return 0
	}

	log.Trace("Generated PHash ", hash, " for image with size ", image.Bounds().Size())

	return hash.GetHash()
}

// FilePHash hashes a downloaded image. Formats the decoder does not know
// (webm, svg) hash to 0.
func FilePHash(fs afero.Fs, path string) uint64 {
	file, err := fs.Open(path)
	if err != nil {
		log.Error("Failed to open ", path, " for hashing: ", err)
		return 0
	}
	defer file.Close()

	decoded := DecodeImage(file)
	if decoded == nil {
		return 0
	}

	return GeneratePHash(decoded)
}
