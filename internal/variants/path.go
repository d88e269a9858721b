package variants

import (
	"path"
	"strings"
)

// VariantKey derives the storage key for a derivative from the original's
// key: the original's directory gains a variants/ segment and the file is
// renamed {type}_{name}.jpg. Derivatives are always JPEG regardless of the
// source format.
func VariantKey(variantType, storagePath string) string {
	dir := path.Dir(storagePath)
	name := strings.TrimSuffix(path.Base(storagePath), path.Ext(storagePath))
	return path.Join(dir, "variants", variantType+"_"+name+".jpg")
}
