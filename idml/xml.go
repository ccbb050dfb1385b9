// Package idml reads structure of extracted InDesign markup package: document
// manifest, stories and spreads with their page geometry.
package idml

import (
	"bytes"
	"fmt"
	"os"

	"github.com/beevik/etree"
	"golang.org/x/net/html/charset"

	"idmlfill/common"
)

// Names of package parts.
const (
	DesignMap    = "designmap.xml"
	LinksDir     = "Links"
	PackageSpace = "idPkg"
)

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.ReadSettings = etree.ReadSettings{
		CharsetReader: charset.NewReaderLabel,
		Permissive:    false,
		PreserveCData: true,
	}
	doc.WriteSettings = etree.WriteSettings{
		CanonicalText:    true,
		CanonicalAttrVal: true,
	}
	return doc
}

// ReadXML parses package part.
func ReadXML(path string) (*etree.Document, error) {
	doc := newDocument()
	if err := doc.ReadFromFile(path); err != nil {
		return nil, common.Errorf(common.ErrorKindFormat, "unable to parse %s: %w", path, err)
	}
	if doc.Root() == nil {
		return nil, common.Errorf(common.ErrorKindFormat, "unable to parse %s: no root element", path)
	}
	return doc, nil
}

// WriteXML serializes package part and makes sure result is well formed by
// parsing it back before replacing the file.
func WriteXML(doc *etree.Document, path string) error {
	doc.WriteSettings.CanonicalText = true
	doc.WriteSettings.CanonicalAttrVal = true

	data, err := doc.WriteToBytes()
	if err != nil {
		return common.Errorf(common.ErrorKindFormat, "unable to serialize %s: %w", path, err)
	}
	if err := verify(data); err != nil {
		return common.Errorf(common.ErrorKindFormat, "output for %s is not well formed: %w", path, err)
	}

	info, err := os.Stat(path)
	mode := os.FileMode(0644)
	if err == nil {
		mode = info.Mode().Perm()
	}
	if err := os.WriteFile(path, data, mode); err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to write %s: %w", path, err)
	}
	return nil
}

func verify(data []byte) error {
	check := newDocument()
	if _, err := check.ReadFrom(bytes.NewReader(data)); err != nil {
		return err
	}
	if check.Root() == nil {
		return fmt.Errorf("no root element")
	}
	return nil
}

// VerifyFile checks that file on disk is well formed XML.
func VerifyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return common.Errorf(common.ErrorKindIo, "unable to read %s: %w", path, err)
	}
	if err := verify(data); err != nil {
		return common.Errorf(common.ErrorKindFormat, "%s is not well formed: %w", path, err)
	}
	return nil
}

// Self returns element identifier.
func Self(el *etree.Element) string {
	return el.SelectAttrValue("Self", "")
}
