package ir

// ProvisioningState is the single persisted record of a setup run. It is
// overwritten wholesale after every completed stage.
type ProvisioningState struct {
	Stage Stage  `json:"stage"`
	RunID string `json:"runId,omitempty"`

	Bucket                *Bucket             `json:"bucket,omitempty"`
	SerpWowIAMUser        *IAMUser            `json:"serpWowIamUser,omitempty"`
	SerpWowAccessPolicy   *IAMPolicy          `json:"serpWowAccessPolicy,omitempty"`
	SnowflakeAccessPolicy *IAMPolicy          `json:"snowflakeAccessPolicy,omitempty"`
	SnowflakeRole         *IAMRole            `json:"snowflakeRole,omitempty"`
	Destination           *Destination        `json:"destination,omitempty"`
	StorageIntegration    *StorageIntegration `json:"storageIntegration,omitempty"`
	Database              string              `json:"database,omitempty"`
	Schema                string              `json:"schema,omitempty"`
	Table                 *Table              `json:"table,omitempty"`
	WarehouseStage        *WarehouseStage     `json:"warehouseStage,omitempty"`
	Pipe                  *Pipe               `json:"pipe,omitempty"`

	CreatedResources []ResourceRecord `json:"createdResources"`
}

type Bucket struct {
	Name     string `json:"name"`
	Location string `json:"location,omitempty"`
}

// IAMUser is the upload user SerpWow writes results with. The access key is
// filled in once the key has been created.
type IAMUser struct {
	Name            string `json:"name"`
	AccessKeyID     string `json:"accessKeyId,omitempty"`
	SecretAccessKey string `json:"secretAccessKey,omitempty"`
}

type IAMPolicy struct {
	Name string `json:"name"`
	ARN  string `json:"arn"`
}

type IAMRole struct {
	Name string `json:"name"`
	ARN  string `json:"arn"`
}

// AccessKey is a freshly created IAM access key pair.
type AccessKey struct {
	AccessKeyID     string
	SecretAccessKey string
}

type Destination struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// StorageIntegration carries the identity Snowflake assumes the IAM role as.
type StorageIntegration struct {
	Name          string `json:"name"`
	AWSUserARN    string `json:"awsUserArn"`
	AWSExternalID string `json:"awsExternalId"`
}

type Table struct {
	Name string `json:"name"`
}

// WarehouseStage is a Snowflake external stage pointing at the bucket.
type WarehouseStage struct {
	Name string `json:"name"`
}

type Pipe struct {
	Name                string `json:"name"`
	NotificationChannel string `json:"notificationChannel"`
}

// Clone returns a copy of s that shares no mutable memory with it.
func (s *ProvisioningState) Clone() *ProvisioningState {
	if s == nil {
		return nil
	}
	c := *s
	c.Bucket = clonePtr(s.Bucket)
	c.SerpWowIAMUser = clonePtr(s.SerpWowIAMUser)
	c.SerpWowAccessPolicy = clonePtr(s.SerpWowAccessPolicy)
	c.SnowflakeAccessPolicy = clonePtr(s.SnowflakeAccessPolicy)
	c.SnowflakeRole = clonePtr(s.SnowflakeRole)
	c.Destination = clonePtr(s.Destination)
	c.StorageIntegration = clonePtr(s.StorageIntegration)
	c.Table = clonePtr(s.Table)
	c.WarehouseStage = clonePtr(s.WarehouseStage)
	c.Pipe = clonePtr(s.Pipe)
	if s.CreatedResources != nil {
		c.CreatedResources = make([]ResourceRecord, len(s.CreatedResources))
		copy(c.CreatedResources, s.CreatedResources)
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
