package substitute

import (
	"fmt"
	"strconv"

	"github.com/beevik/etree"

	"idmlfill/idml"
)

// graphics which may occupy graphic frame
var graphics = map[string]bool{
	"Image": true, "EPS": true, "PDF": true, "PICT": true, "WMF": true, "ImportedPage": true, "EPSText": true,
}

var frames = map[string]bool{
	"Rectangle": true, "Oval": true, "Polygon": true,
}

// IsGraphicFrame reports whether element may hold placed graphic.
func IsGraphicFrame(el *etree.Element) bool {
	return frames[el.Tag]
}

func linkSize(size int64) string {
	// high and low 32 bit words in hex
	return fmt.Sprintf("%x~%x", uint64(size)>>32, uint64(size)&0xffffffff)
}

// Relink points graphic frame to staged image. Existing Image keeps its
// identity and transformation, embedded data is dropped. Other kinds of
// placed graphics are replaced. newID produces identifiers for created
// elements.
func Relink(frame *etree.Element, st *Staged, newID func(base string) string) {
	var img *etree.Element
	for _, child := range frame.ChildElements() {
		if !graphics[child.Tag] {
			continue
		}
		if child.Tag == "Image" && img == nil {
			img = child
			continue
		}
		frame.RemoveChild(child)
	}

	if img == nil {
		img = frame.CreateElement("Image")
		img.CreateAttr("Self", newID(idml.Self(frame)+"img"))
		img.CreateAttr("ItemTransform", "1 0 0 1 0 0")
	}

	img.CreateAttr("ImageTypeName", st.Format)
	space := "$ID/RGB"
	if st.Gray {
		space = "$ID/Gray"
	}
	img.CreateAttr("Space", space)

	props := img.SelectElement("Properties")
	if props == nil {
		props = etree.NewElement("Properties")
		img.InsertChildAt(0, props)
	}
	if contents := props.SelectElement("Contents"); contents != nil {
		props.RemoveChild(contents)
	}
	if st.Width > 0 && st.Height > 0 {
		bounds := props.SelectElement("GraphicBounds")
		if bounds == nil {
			bounds = props.CreateElement("GraphicBounds")
		}
		bounds.CreateAttr("Left", "0")
		bounds.CreateAttr("Top", "0")
		bounds.CreateAttr("Right", strconv.Itoa(st.Width))
		bounds.CreateAttr("Bottom", strconv.Itoa(st.Height))
	}

	link := img.SelectElement("Link")
	if link == nil {
		link = img.CreateElement("Link")
		link.CreateAttr("Self", newID(idml.Self(img)+"lnk"))
	}
	link.CreateAttr("LinkResourceURI", st.URI())
	link.CreateAttr("LinkResourceFormat", st.Format)
	link.CreateAttr("StoredState", "Normal")
	link.CreateAttr("LinkResourceSize", linkSize(st.Size))
	link.CreateAttr("LinkResourceModified", "false")
	link.CreateAttr("LinkObjectModified", "false")
	link.RemoveAttr("LinkImportModificationTime")
	link.RemoveAttr("LinkImportTime")
	link.RemoveAttr("LinkImportStamp")

	frame.CreateAttr("ContentType", "GraphicType")
}
