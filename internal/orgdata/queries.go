package orgdata

// sectionQuery pairs a logical section name with the statement that loads it.
// Every statement takes the organization id as its single bind argument.
type sectionQuery struct {
	Key string
	SQL string
}

// The eleven org-detail sections. Order here is the dispatch order; stream
// consumers see completion order instead.
var sectionQueries = []sectionQuery{
	{
		Key: "orgInfo",
		SQL: `SELECT o.id AS org_id, o.name AS org_name, o.public_id AS org_public_id,
       o.datacenter, o.created_timestamp AS org_created_date,
       sa.name AS salesforce_account_name, sa.id AS salesforce_account_id,
       sa.sales_segment, sa.billing_country, sa.type AS account_type, sa.industry,
       csm_user.name AS customer_success_manager, csm_user.email AS csm_email,
       owner_user.name AS account_owner, owner_user.email AS account_owner_email,
       se_user.name AS sales_engineer, se_user.email AS sales_engineer_email
FROM DIM_ORG o
LEFT JOIN DIM_SALESFORCE_ACCOUNT sa ON sa.org_id = o.id
LEFT JOIN DIM_SALESFORCE_USER csm_user
  ON sa.customer_success_rep_salesforce_user_id = csm_user.id_case_sensitive
LEFT JOIN DIM_SALESFORCE_USER owner_user
  ON sa.owner_salesforce_user_id = owner_user.id_case_sensitive
LEFT JOIN DIM_SALESFORCE_USER se_user
  ON sa.account_sales_engineer = se_user.id_case_sensitive
WHERE o.id = ?`,
	},
	{
		Key: "conversionTime",
		SQL: `SELECT ORG_ID, start_timestamp
FROM FACT_ORG_BILLING_PLAN_HISTORY
WHERE billing_plan IN ('pro', 'enterprise')
  AND ORG_ID = ?
ORDER BY start_timestamp ASC
LIMIT 1`,
	},
	{
		Key: "arrData",
		SQL: `SELECT revenue_month,
       ROUND(total_arr, 0) AS total_arr,
       ROUND(committed_arr, 0) AS committed_arr,
       ROUND(usage_arr, 0) AS usage_arr,
       ROUND(on_demand_arr, 0) AS on_demand_arr,
       ROUND(total_mrr, 0) AS total_mrr,
       is_first_usage_month, is_most_recent_month
FROM BILLING.FACT_USAGE_AND_COMMITTED_REVENUE_MONTHLY
WHERE ORG_ID = ?
  AND is_most_recent_month = TRUE`,
	},
	{
		Key: "billableUsage",
		SQL: `SELECT ORG_ID, BILLING_DIMENSION,
       TO_DATE(TO_TIMESTAMP_LTZ(FIRST_BILLABLE_USAGE_HOUR)) AS FIRST_BILLABLE_USAGE_HOUR,
       TO_DATE(TO_TIMESTAMP_LTZ(LAST_BILLABLE_USAGE_HOUR)) AS LAST_BILLABLE_USAGE_HOUR,
       ORG_USAGE, USAGE_UNIT, AGGREGATION_FUNCTION, IS_PRODUCT_BILLABLE
FROM FACT_ORG_BILLABLE_USAGE_MONTHLY
WHERE IS_MOST_RECENT_MONTH = TRUE
  AND ORG_ID = ?
ORDER BY BILLING_DIMENSION ASC`,
	},
	{
		Key: "infraHosts",
		SQL: `SELECT max_by(agent_host_count, usage_hour) AS agent_host_count
FROM FACT_ORG_INFRA_USAGE_HOURLY_VIEW
WHERE agent_host_count > 0
  AND ORG_ID = ?`,
	},
	{
		Key: "cloudHosts",
		SQL: `SELECT max_by(aws_host_count, usage_hour) AS aws_host_count,
       max_by(azure_host_count, usage_hour) AS azure_host_count,
       max_by(gcp_host_count, usage_hour) AS gcp_host_count,
       max_by(oci_host_count, usage_hour) AS oci_host_count
FROM FACT_ORG_INFRA_USAGE_HOURLY_VIEW
WHERE ORG_ID = ?`,
	},
	{
		Key: "dashboards",
		SQL: `SELECT id, title, created_at
FROM DIM_DASHBOARD
WHERE widget_count > 0
  AND title NOT ILIKE '%(cloned)%'
  AND ORG_ID = ?
ORDER BY created_at DESC`,
	},
	{
		Key: "monitors",
		SQL: `SELECT DISTINCT id, name, HAS_NOTIFICATION_HANDLE, created_timestamp
FROM DIM_MONITOR,
     LATERAL FLATTEN(input => monitor_tags) AS tag_values
WHERE monitor_tags::STRING NOT LIKE '%"tag_key":"monitor_pack"%'
  AND ORG_ID = ?
ORDER BY created_timestamp DESC`,
	},
	{
		Key: "integrations",
		SQL: `SELECT DISTINCT integration_name
FROM DIM_ORG_ENABLED_INTEGRATION e
JOIN DIM_INTEGRATION i ON i.integration_id = e.integration_id
WHERE e.ORG_ID = ?
ORDER BY integration_name`,
	},
	{
		Key: "pageviews",
		SQL: `SELECT PAGE_DIRECTORY_LEVEL1,
       COUNT(DISTINCT PAGEVIEW_ID) AS pageview_count
FROM FACT_APP_PAGEVIEW_HISTORY
WHERE ORG_ID = ?
  AND PAGE_DIRECTORY_LEVEL1 IS NOT NULL
GROUP BY PAGE_DIRECTORY_LEVEL1
ORDER BY pageview_count DESC
LIMIT 10`,
	},
	{
		Key: "activeUsers",
		SQL: `SELECT u.ID AS user_id,
       u.NAME AS user_name,
       u.EMAIL AS user_email,
       COUNT(DISTINCT pv.PAGEVIEW_ID) AS pageview_count,
       COUNT(DISTINCT pv.SESSION_ID) AS session_count,
       SUM(pv.INTERACTIONS_COUNT) AS interactions,
       SUM(pv.TIME_SPENT_ON_PAGE_SECONDS) AS time_spent_seconds
FROM FACT_APP_PAGEVIEW_HISTORY pv
LEFT JOIN DIM_APP_USER u
  ON pv.APP_USER_ID = u.ID
  AND pv.ORG_ID = u.ORG_ID
WHERE pv.ORG_ID = ?
GROUP BY u.ID, u.NAME, u.EMAIL
ORDER BY pageview_count DESC
LIMIT 10`,
	},
}

// Keys returns the logical section names in dispatch order.
func Keys() []string {
	keys := make([]string, len(sectionQueries))
	for i, q := range sectionQueries {
		keys[i] = q.Key
	}
	return keys
}
