package handoff

import (
	"fmt"
	"os"
	"path/filepath"
)

// defaultLayout maps logical artifact keys to fixed relative paths under the
// workflow-data root. The layout mirrors the per-agent Inputs/Outputs
// directory convention of the upstream procurement system.
var defaultLayout = map[string]string{
	ArtifactCompanyProfile:  "company_profile.json",
	ArtifactFieldDictionary: "sap_field_dictionary.json",
	ArtifactRequirements:    "Template_Builder_Agent/Inputs/detailed_requirements_from_procurement.json",
	ArtifactTemplateIndex:   "Template_Builder_Agent/Data_Sources/historical_templates/historical_rfx_templates_index.json",
	ArtifactSupplierMaster:  "Distribution_Agent/Data_Sources/supplier_master_data.csv",

	ArtifactSupplierShortlist:     "Distribution_Agent/Inputs/supplier_shortlist.json",
	ArtifactCustomizedTemplate:    "Template_Builder_Agent/Outputs/customized_rfx_template.json",
	ArtifactDraftingTemplateInput: "Content_Generation_Agent/Inputs/customized_template_from_TBA.json",
	ArtifactDraftedDocument:       "Content_Generation_Agent/Outputs/drafted_rfx_document.json",
	ArtifactDistributionDocInput:  "Distribution_Agent/Inputs/drafted_rfx_from_CGA.json",
	ArtifactDistributionStatus:    "Distribution_Agent/Outputs/distribution_status.json",
	ArtifactAuditTrail:            "Audit_Logger_Agent/Outputs/audit_trail.json",
}

// FileStore is the file-backed handoff store.
//
// Unknown keys resolve to "<key>.json" under the root so ad-hoc artifacts
// still land inside the workflow-data directory.
type FileStore struct {
	root   string
	layout map[string]string
}

// NewFileStore creates a FileStore rooted at the workflow-data directory.
func NewFileStore(root string) *FileStore {
	return &FileStore{
		root:   root,
		layout: defaultLayout,
	}
}

// Path resolves an artifact key to its absolute path.
func (f *FileStore) Path(key string) string {
	rel, ok := f.layout[key]
	if !ok {
		rel = key + ".json"
	}
	return filepath.Join(f.root, filepath.FromSlash(rel))
}

// Put implements Store.
func (f *FileStore) Put(key string, data []byte) error {
	path := f.Path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create artifact directory for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write artifact %s: %w", key, err)
	}
	return nil
}

// Get implements Store.
func (f *FileStore) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(f.Path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("read artifact %s: %w", key, err)
	}
	return data, nil
}

// Exists implements Store.
func (f *FileStore) Exists(key string) bool {
	_, err := os.Stat(f.Path(key))
	return err == nil
}

// Copy implements Store.
func (f *FileStore) Copy(src, dst string) error {
	data, err := f.Get(src)
	if err != nil {
		return err
	}
	return f.Put(dst, data)
}
