package media

import (
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"math/bits"
	"os"

	"github.com/corona10/goimagehash"
)

// SimilarThreshold расстояние Хэмминга, ниже которого изображения считаются похожими
const SimilarThreshold = 10

// DuplicatePair пара визуально похожих изображений
type DuplicatePair struct {
	A        string `json:"a"`
	B        string `json:"b"`
	Distance int    `json:"distance"`
}

// ImageHash вычисляет perceptual hash изображения (dHash)
func ImageHash(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return 0, fmt.Errorf("failed to decode image: %w", err)
	}

	hash, err := goimagehash.DifferenceHash(img)
	if err != nil {
		return 0, fmt.Errorf("failed to calculate hash: %w", err)
	}

	return hash.GetHash(), nil
}

// HammingDistance количество различающихся битов двух хешей
func HammingDistance(hash1, hash2 uint64) int {
	return bits.OnesCount64(hash1 ^ hash2)
}

// FindDuplicates возвращает пары похожих изображений. Файлы, которые не
// удалось декодировать, пропускаются.
func FindDuplicates(paths []string) []DuplicatePair {
	type hashed struct {
		path string
		hash uint64
	}

	var list []hashed
	for _, p := range paths {
		h, err := ImageHash(p)
		if err != nil {
			continue
		}
		list = append(list, hashed{path: p, hash: h})
	}

	var pairs []DuplicatePair
	for i := 0; i < len(list); i++ {
		for j := i + 1; j < len(list); j++ {
			if d := HammingDistance(list[i].hash, list[j].hash); d < SimilarThreshold {
				pairs = append(pairs, DuplicatePair{A: list[i].path, B: list[j].path, Distance: d})
			}
		}
	}
	return pairs
}
