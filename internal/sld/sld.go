// Package sld renders the Styled Layer Descriptor that tells a map client
// how to display the exported GeoTIFF as an RGB composite.
//
// The document is fixed: band 1 is red, band 2 green, band 3 blue, each
// with a neutral gamma. Nothing run-specific is embedded, so the output
// is byte-identical across runs.
package sld

import (
	"bytes"

	"github.com/beevik/etree"
)

// Source channel names for the exported band order.
const (
	RedChannel   = "1"
	GreenChannel = "2"
	BlueChannel  = "3"
)

// GammaValue is the neutral contrast enhancement applied to every channel.
const GammaValue = "1.0"

// StyleName is used for both the named layer and the user style.
const StyleName = "Default Styler"

const (
	nsSLD = "http://www.opengis.net/sld"
	nsGML = "http://www.opengis.net/gml"
	nsOGC = "http://www.opengis.net/ogc"
)

// channel binds an SLD channel element to a source band.
type channel struct {
	element string
	source  string
}

var channels = []channel{
	{element: "sld:RedChannel", source: RedChannel},
	{element: "sld:GreenChannel", source: GreenChannel},
	{element: "sld:BlueChannel", source: BlueChannel},
}

// Render returns the SLD document.
func Render() string {
	var buf bytes.Buffer
	// Writing to a bytes.Buffer cannot fail.
	_, _ = Document().WriteTo(&buf)
	return buf.String()
}

// Document builds the SLD as an etree document.
func Document() *etree.Document {
	doc := etree.NewDocument()
	// Keep the title's literal quotes instead of &quot;.
	doc.WriteSettings.CanonicalText = true
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement("sld:StyledLayerDescriptor")
	root.CreateAttr("xmlns", nsSLD)
	root.CreateAttr("xmlns:sld", nsSLD)
	root.CreateAttr("xmlns:gml", nsGML)
	root.CreateAttr("xmlns:ogc", nsOGC)
	root.CreateAttr("version", "1.0.0")

	layer := root.CreateElement("sld:NamedLayer")
	layer.CreateElement("sld:Name").SetText(StyleName)

	style := layer.CreateElement("sld:UserStyle")
	style.CreateElement("sld:Name").SetText(StyleName)
	style.CreateElement("sld:Title").SetText(`vhr_raster : ""`)

	fts := style.CreateElement("sld:FeatureTypeStyle")
	fts.CreateElement("sld:Name").SetText("name")

	symbolizer := fts.CreateElement("sld:Rule").CreateElement("sld:RasterSymbolizer")
	selection := symbolizer.CreateElement("sld:ChannelSelection")
	for _, ch := range channels {
		el := selection.CreateElement(ch.element)
		el.CreateElement("sld:SourceChannelName").SetText(ch.source)
		el.CreateElement("sld:ContrastEnhancement").
			CreateElement("sld:GammaValue").SetText(GammaValue)
	}
	symbolizer.CreateElement("sld:ContrastEnhancement")

	doc.Indent(2)
	return doc
}
