package snowflake

import (
	"strings"
	"text/template"
)

var createIntegrationTmpl = template.Must(template.New("integration").Parse(
	`CREATE STORAGE INTEGRATION {{.Name}}
  TYPE = EXTERNAL_STAGE
  STORAGE_PROVIDER = 'S3'
  ENABLED = TRUE
  STORAGE_AWS_ROLE_ARN = '{{.RoleARN}}'
  STORAGE_ALLOWED_LOCATIONS = ('s3://{{.Bucket}}/')`))

var createTableTmpl = template.Must(template.New("table").Parse(
	`CREATE TABLE {{.Name}} (
  SEARCH_PARAMETERS  OBJECT,
  RANK_DATE          DATE    COMMENT 'search_metadata.processed_at',
  SEARCH_INFORMATION OBJECT,
  RELATED_SEARCHES   ARRAY,
  RELATED_QUESTIONS  ARRAY,
  ORGANIC_RESULTS    ARRAY,
  ANSWER_BOX         OBJECT,
  ADS                ARRAY,
  LOCAL_RESULTS      ARRAY,
  LOCAL_SERVICE_ADS  ARRAY,
  KNOWLEDGE_GRAPH    OBJECT,
  TOP_CAROUSEL       ARRAY,
  TOP_STORIES        ARRAY,
  TOP_PRODUCTS       ARRAY,
  INLINE_VIDEOS      ARRAY,
  INLINE_IMAGES      ARRAY,
  INLINE_SHOPPING    ARRAY,
  INLINE_TWEETS      ARRAY,
  INLINE_PODCASTS    ARRAY,
  INLINE_RECIPES     ARRAY
)`))

var createStageTmpl = template.Must(template.New("stage").Parse(
	`CREATE STAGE {{.Name}}
  URL = 's3://{{.Bucket}}'
  STORAGE_INTEGRATION = {{.Integration}}
  FILE_FORMAT = (TYPE = JSON, STRIP_OUTER_ARRAY = TRUE)`))

var createPipeTmpl = template.Must(template.New("pipe").Parse(
	`CREATE PIPE {{.Name}}
  AUTO_INGEST = TRUE
  AS
  COPY INTO {{.Table}}
  FROM (SELECT
    $1:result.search_parameters::OBJECT,
    $1:result.search_metadata.processed_at::DATE,
    $1:result.search_information::OBJECT,
    $1:result.related_searches::ARRAY,
    $1:result.related_questions::ARRAY,
    $1:result.organic_results::ARRAY,
    $1:result.answer_box::OBJECT,
    $1:result.ads::ARRAY,
    $1:result.local_results::ARRAY,
    $1:result.local_service_ads::ARRAY,
    $1:result.knowledge_graph::OBJECT,
    $1:result.top_carousel::ARRAY,
    $1:result.top_stories::ARRAY,
    $1:result.top_products::ARRAY,
    $1:result.inline_videos::ARRAY,
    $1:result.inline_images::ARRAY,
    $1:result.inline_shopping::ARRAY,
    $1:result.inline_tweets::ARRAY,
    $1:result.inline_podcasts::ARRAY,
    $1:result.inline_recipes::ARRAY
  FROM @{{.Stage}})
  ON_ERROR = CONTINUE`))

// Each branch of the view flattens one SERP feature into rows of the same
// shape. The common leading columns are shared by every branch.
const viewCommonColumns = `rank_date::date,
    search_parameters:q::string,
    search_parameters:engine::string,
    search_parameters:gl::string,
    search_parameters:hl::string,
    search_parameters:location::string,
    IFNULL(search_parameters:device::string, 'desktop'),
    search_parameters:custom_id::string,`

var createViewTmpl = template.Must(template.New("view").Funcs(template.FuncMap{
	"common": func() string { return viewCommonColumns },
}).Parse(
	`CREATE SECURE VIEW {{.Name}}(
  RANK_DATE,
  KEYWORD,
  ENGINE,
  COUNTRY,
  LANGUAGE,
  LOCATION,
  DEVICE,
  SEARCH_ID,
  MESSAGE_TYPE,
  TITLE,
  DESCRIPTION,
  URL,
  DOMAIN,
  ESTIMATED_PAGE,
  POSITION
)
AS
  SELECT
    {{common}}
    'organic_results',
    organic.value:title::string,
    organic.value:snippet::string,
    organic.value:link::string,
    organic.value:domain::string,
    ceil(organic.value:position::integer / 10),
    organic.value:position::string
  FROM {{.Table}}, LATERAL FLATTEN(INPUT => organic_results) AS organic

  UNION ALL

  SELECT
    {{common}}
    'local_results',
    localpack.value:title::string,
    NULL,
    NULL,
    NULL,
    1,
    localpack.value:position::number
  FROM {{.Table}}, LATERAL FLATTEN(INPUT => local_results) AS localpack

  UNION ALL

  SELECT
    {{common}}
    'knowledge_graph',
    knowledge_graph:title::string,
    NULL,
    knowledge_graph:website::string,
    NULL,
    1,
    1
  FROM {{.Table}} WHERE IS_OBJECT(knowledge_graph)

  UNION ALL

  SELECT
    {{common}}
    'related_questions',
    related_question.value:question::string,
    NULL,
    NULL,
    NULL,
    1,
    related_question.index::number + 1
  FROM {{.Table}}, LATERAL FLATTEN(INPUT => related_questions) AS related_question

  UNION ALL

  SELECT
    {{common}}
    'related_searches',
    related_search.value:query::string,
    NULL,
    NULL,
    NULL,
    1,
    related_search.index::number + 1
  FROM {{.Table}}, LATERAL FLATTEN(INPUT => related_searches) AS related_search

  UNION ALL

  SELECT
    {{common}}
    'ads',
    ad.value:title::string,
    ad.value:description::string,
    ad.value:link::string,
    ad.value:domain::string,
    NULL,
    ad.value:position::integer
  FROM {{.Table}}, LATERAL FLATTEN(INPUT => ads) AS ad

  UNION ALL

  SELECT
    {{common}}
    'local_service_ads',
    local_service_ad.value:title::string,
    NULL,
    local_service_ad.value:link::string,
    NULL,
    1,
    local_service_ad.value:position::integer
  FROM {{.Table}}, LATERAL FLATTEN(INPUT => local_service_ads) AS local_service_ad

  UNION ALL

  SELECT
    {{common}}
    'inline_shopping',
    inline_shopping.value:title::string,
    inline_shopping.value:merchant::string,
    inline_shopping.value:link::string,
    NULL,
    NULL,
    inline_shopping.value:position::integer
  FROM {{.Table}}, LATERAL FLATTEN(INPUT => inline_shopping) AS inline_shopping`))

type statementArgs struct {
	Name        string
	RoleARN     string
	Bucket      string
	Integration string
	Table       string
	Stage       string
}

func render(tmpl *template.Template, args statementArgs) (string, error) {
	var sb strings.Builder
	if err := tmpl.Execute(&sb, args); err != nil {
		return "", err
	}
	return sb.String(), nil
}
